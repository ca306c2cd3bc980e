package purchasing

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func newTestRouter(svc *Service) http.Handler {
	r := chi.NewRouter()
	r.Route("/purchase-orders", NewHandler(nil, svc).MountRoutes)
	return r
}

func TestHandlerPDF(t *testing.T) {
	svc, _ := newTestService(&fakeRenderer{}, nil)
	body := `{"lines":[{"productId":"` + robeID + `","quantity":2}]}`

	rec := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/purchase-orders/pdf", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Header().Get("Content-Disposition"), "bon-de-commande-BC-20261019-101500.pdf")
	require.Equal(t, "%PDF-fake", rec.Body.String())
}

func TestHandlerPDFErrors(t *testing.T) {
	cases := map[string]struct {
		svc  *Service
		body string
		want int
	}{
		"malformed":       {body: `{`, want: http.StatusBadRequest},
		"no lines":        {body: `{"lines":[]}`, want: http.StatusBadRequest},
		"unknown product": {body: `{"lines":[{"productId":"` + ghostID + `","quantity":1}]}`, want: http.StatusNotFound},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			svc, _ := newTestService(&fakeRenderer{}, nil)
			rec := httptest.NewRecorder()
			newTestRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/purchase-orders/pdf", strings.NewReader(tc.body)))
			require.Equal(t, tc.want, rec.Code)
			require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
		})
	}

	svc, _ := newTestService(nil, nil)
	rec := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/purchase-orders/pdf",
		strings.NewReader(`{"lines":[{"productId":"`+robeID+`","quantity":1}]}`)))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandlerEmail(t *testing.T) {
	queue := &fakeQueue{}
	svc, _ := newTestService(&fakeRenderer{}, queue, "commandes@flaelle.test")
	body := `{"supplier":"Friperie","lines":[{"productId":"` + jupeID + `","quantity":154}]}`

	rec := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/purchase-orders/email", strings.NewReader(body)))

	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp struct {
		Status string `json:"status"`
		Order  struct {
			Number string `json:"number"`
			Total  string `json:"total"`
		} `json:"order"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, "queued", resp.Status)
	require.Equal(t, "BC-20261019-101500", resp.Order.Number)
	require.Equal(t, "160006", resp.Order.Total)
	require.Len(t, queue.payloads, 1)
}
