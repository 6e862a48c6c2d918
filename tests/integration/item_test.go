//go:build integration

package integration

import (
	"net/http"
	"net/url"
	"testing"
)

func TestListItems(t *testing.T) {
	_, token := register(t)

	resp := doGet(t, "/api/item", token)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	items := decodeJSON[[]itemResponse](t, resp)
	if len(items) != seededItems {
		t.Fatalf("expected %d items, got %d", seededItems, len(items))
	}

	want := map[string]float64{
		"Round Widget":      2.99,
		"Square Widget":     1.99,
		"Toothbrush":        3.99,
		"Toothbrush holder": 1.99,
	}
	for _, it := range items {
		price, ok := want[it.Name]
		if !ok {
			t.Errorf("unexpected item %q", it.Name)
			continue
		}
		if it.Price != price {
			t.Errorf("%s price: got %v, want %v", it.Name, it.Price, price)
		}
		if it.Description == "" {
			t.Errorf("%s: empty description", it.Name)
		}
	}
}

func TestGetItem(t *testing.T) {
	_, token := register(t)

	list := doGet(t, "/api/item", token)
	items := decodeJSON[[]itemResponse](t, list)
	list.Body.Close()
	if len(items) == 0 {
		t.Fatal("catalog is empty")
	}

	resp := doGet(t, "/api/item/"+itoa(items[0].ID), token)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if got := decodeJSON[itemResponse](t, resp); got != items[0] {
		t.Errorf("got %+v, want %+v", got, items[0])
	}
}

func TestGetItem_Errors(t *testing.T) {
	_, token := register(t)

	tests := []struct {
		path string
		want int
	}{
		{"/api/item/999999", http.StatusNotFound},
		{"/api/item/abc", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp := doGet(t, tt.path, token)
			defer resp.Body.Close()

			if resp.StatusCode != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, resp.StatusCode)
			}
			body := decodeJSON[errorResponse](t, resp)
			if body.Code != tt.want {
				t.Errorf("body code: got %d, want %d", body.Code, tt.want)
			}
		})
	}
}

func TestGetItemsByName_Unknown(t *testing.T) {
	_, token := register(t)

	resp := doGet(t, "/api/item/name/"+url.PathEscape("No Such Thing"), token)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if items := decodeJSON[[]itemResponse](t, resp); len(items) != 0 {
		t.Fatalf("expected no items, got %+v", items)
	}
}

func TestGetItemsByName(t *testing.T) {
	_, token := register(t)

	resp := doGet(t, "/api/item/name/"+url.PathEscape("Toothbrush holder"), token)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	items := decodeJSON[[]itemResponse](t, resp)
	if len(items) != 1 || items[0].Name != "Toothbrush holder" {
		t.Fatalf("unexpected items: %+v", items)
	}
}
