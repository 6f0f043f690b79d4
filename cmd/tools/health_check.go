package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"
)

// Standalone probe for the service's /health endpoint.

func main() {
	addr := flag.String("addr", "http://localhost:8080", "service base URL")
	flag.Parse()

	fmt.Println("dexflow Health Check Utility")
	fmt.Println("----------------------------")

	healthy, err := checkServiceHealth(*addr + "/health")
	if err != nil {
		fmt.Printf("Health check failed: %v\n", err)
		os.Exit(1)
	}

	if healthy {
		fmt.Println("Service is healthy!")
		return
	}
	fmt.Println("Service is NOT healthy!")
	os.Exit(1)
}

func checkServiceHealth(url string) (bool, error) {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var body struct {
		Success bool `json:"success"`
		Data    struct {
			Status         string `json:"status"`
			CacheConnected bool   `json:"cache_connected"`
			Clients        int    `json:"clients"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, err
	}

	fmt.Printf("cache connected: %v, websocket clients: %d\n",
		body.Data.CacheConnected, body.Data.Clients)
	return body.Success && body.Data.Status == "ok", nil
}
