// Command mocksquare serves a fake Square API with deterministic generated
// orders, for running the sync service locally without credentials. It
// honors the cursor pagination and creation-time window protocol of the
// real orders/search endpoint.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/foodtruck/salesync/internal/domain"
)

const pageSize = 5

var menu = []struct {
	catalogID string
	name      string
	cents     int64
}{
	{"CAT-TACO", "Taco", 500},
	{"CAT-BURRITO", "Burrito", 950},
	{"CAT-QUESADILLA", "Quesadilla", 800},
	{"CAT-AGUA", "Agua Fresca", 350},
	{"CAT-CHIPS", "Chips & Salsa", 400},
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "9090"
	}

	locations := []domain.Location{
		{ID: "LOC-TRUCK-1", Name: "Downtown Truck"},
		{ID: "LOC-TRUCK-2", Name: "Campus Truck"},
	}
	ordersByLocation := map[string][]domain.Order{}
	for _, loc := range locations {
		ordersByLocation[loc.ID] = generateOrders(loc.ID, 23)
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /v2/locations", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"locations": locations})
	})

	mux.HandleFunc("POST /v2/orders/search", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			LocationIDs []string `json:"location_ids"`
			Query       struct {
				Filter struct {
					DateTimeFilter struct {
						CreatedAt struct {
							StartAt string `json:"start_at"`
							EndAt   string `json:"end_at"`
						} `json:"created_at"`
					} `json:"date_time_filter"`
				} `json:"filter"`
			} `json:"query"`
			Cursor string `json:"cursor"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.LocationIDs) == 0 {
			http.Error(w, `{"errors":[{"detail":"bad search request"}]}`, http.StatusBadRequest)
			return
		}

		created := req.Query.Filter.DateTimeFilter.CreatedAt

		// Closed-open window on the verbatim RFC3339 strings.
		var inWindow []domain.Order
		for _, o := range ordersByLocation[req.LocationIDs[0]] {
			if o.CreatedAt >= created.StartAt && o.CreatedAt < created.EndAt {
				inWindow = append(inWindow, o)
			}
		}

		offset := 0
		if req.Cursor != "" {
			n, err := strconv.Atoi(req.Cursor)
			if err != nil || n < 0 || n > len(inWindow) {
				http.Error(w, `{"errors":[{"detail":"invalid cursor"}]}`, http.StatusBadRequest)
				return
			}
			offset = n
		}

		end := offset + pageSize
		if end > len(inWindow) {
			end = len(inWindow)
		}

		resp := map[string]any{"orders": inWindow[offset:end]}
		if end < len(inWindow) {
			resp["cursor"] = strconv.Itoa(end)
		}
		writeJSON(w, resp)
	})

	log.Printf("mocksquare listening on :%s (%d locations, %d orders each)",
		port, len(locations), 23)
	log.Fatal(http.ListenAndServe(":"+port, mux))
}

// generateOrders produces a deterministic day of orders for one location,
// spread over the last 24 hours.
func generateOrders(locationID string, count int) []domain.Order {
	rng := rand.New(rand.NewSource(int64(len(locationID)) * 7919))
	base := time.Now().UTC().Truncate(time.Second).Add(-24 * time.Hour)

	orders := make([]domain.Order, 0, count)
	for i := 0; i < count; i++ {
		createdAt := base.Add(time.Duration(i) * time.Hour).
			Add(time.Duration(rng.Intn(3600)) * time.Second)

		items := make([]domain.LineItem, 0, 1+rng.Intn(3))
		for j := 0; j < cap(items); j++ {
			m := menu[rng.Intn(len(menu))]
			qty := int64(1 + rng.Intn(3))
			gross := m.cents * qty
			items = append(items, domain.LineItem{
				UID:             fmt.Sprintf("LI-%s-%03d-%d", locationID, i, j),
				CatalogObjectID: m.catalogID,
				Name:            m.name,
				Quantity:        strconv.FormatInt(qty, 10),
				GrossSalesMoney: &domain.Money{Amount: gross, Currency: "USD"},
				TotalMoney:      &domain.Money{Amount: gross - gross/10, Currency: "USD"},
			})
		}

		orders = append(orders, domain.Order{
			ID:            fmt.Sprintf("ORD-%s-%03d", locationID, i),
			LocationID:    locationID,
			CreatedAt:     createdAt.Format(time.RFC3339),
			TotalTipMoney: &domain.Money{Amount: int64(rng.Intn(500)), Currency: "USD"},
			LineItems:     items,
		})
	}
	return orders
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}
