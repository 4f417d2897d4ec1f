//go:build ignore

// mock-etsy-server.go - Etsy Open API mock for local sync runs
//
// Usage:
//   go run scripts/mock-etsy-server.go
//   ETSY_BASE_URL=http://localhost:8088/v3 ETSY_TOKEN_URL=http://localhost:8088/v3/public/oauth/token go run ./cmd/sync-server -once
//
// It serves one shop ("shop-1") with two payments: one for SKU-A and one
// for an order without a SKU, so both the upsert and the skip path run.

package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const port = 8088

func main() {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v3/public/oauth/token", handleToken)
	mux.HandleFunc("GET /v3/application/shops/{shop}/payments", handlePayments)
	mux.HandleFunc("GET /v3/application/shops/{shop}/orders/{order}", handleOrder)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("OK"))
	})

	addr := fmt.Sprintf(":%d", port)
	log.Printf("Mock Etsy API starting on http://localhost%s", addr)
	log.Printf("POST /v3/public/oauth/token")
	log.Printf("GET  /v3/application/shops/{shop}/payments")
	log.Printf("GET  /v3/application/shops/{shop}/orders/{order}")
	log.Fatal(http.ListenAndServe(addr, mux))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func handleToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GrantType    string `json:"grant_type"`
		ClientID     string `json:"client_id"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.GrantType != "refresh_token" {
		w.WriteHeader(http.StatusBadRequest)
		writeJSON(w, map[string]string{"error": "invalid_grant"})
		return
	}

	log.Printf("Refreshing token for client %s", req.ClientID)
	writeJSON(w, map[string]any{
		"access_token":  "mock-access-" + uuid.NewString(),
		"refresh_token": "mock-refresh-" + uuid.NewString(),
		"token_type":    "Bearer",
		"expires_in":    3600,
	})
}

func handlePayments(w http.ResponseWriter, r *http.Request) {
	if r.PathValue("shop") != "shop-1" {
		writeJSON(w, map[string]any{"count": 0, "results": []any{}})
		return
	}

	created := time.Now().Add(-24 * time.Hour).Unix()
	writeJSON(w, map[string]any{
		"count": 2,
		"results": []map[string]any{
			{"payment_id": 1001, "order_id": 5001, "amount": map[string]any{"value": 4999, "currency": "USD"}, "status": "paid", "create_date": created},
			{"payment_id": 1002, "order_id": 5002, "amount": map[string]any{"value": 2500}, "status": "paid", "create_date": created},
		},
	})
}

func handleOrder(w http.ResponseWriter, r *http.Request) {
	switch r.PathValue("order") {
	case "5001":
		writeJSON(w, map[string]any{"results": []map[string]any{{
			"order_id":   5001,
			"line_items": []map[string]any{{"sku": "SKU-A", "title": "Mug", "quantity": 1, "price": 49.99}},
		}}})
	case "5002":
		writeJSON(w, map[string]any{"results": []map[string]any{{
			"order_id":   5002,
			"line_items": []map[string]any{{"sku": "", "title": "Custom print", "quantity": 1, "price": 25}},
		}}})
	default:
		w.WriteHeader(http.StatusNotFound)
		writeJSON(w, map[string]string{"error": "order not found"})
	}
}
