package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/companion-backend/internal/platform/ctxutil"
)

func serve(t *testing.T, h gin.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", func(c *gin.Context) {
		ctx := ctxutil.WithTraceData(c.Request.Context(), &ctxutil.TraceData{TraceID: "t-1", RequestID: "req-9"})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}, h)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	return rec
}

func TestRespondErrorCarriesRequestID(t *testing.T) {
	after := false
	rec := serve(t, func(c *gin.Context) {
		RespondError(c, http.StatusForbidden, "subscription.required", errors.New("blocked"))
		after = c.IsAborted()
	})
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.True(t, after)

	var env ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Equal(t, APIError{Message: "blocked", Code: "subscription.required", RequestID: "req-9"}, env.Error)
}

func TestRespondServiceErrorHidesInternal(t *testing.T) {
	rec := serve(t, func(c *gin.Context) {
		RespondServiceError(c, errors.New("pq: connection refused"))
	})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"error":{"message":"internal error","code":"internal_error","request_id":"req-9"}}`, rec.Body.String())
}

func TestRespondList(t *testing.T) {
	cases := []struct {
		name  string
		items []int
		want  string
	}{
		{name: "nil_page", want: `[]`},
		{name: "empty_page", items: []int{}, want: `[]`},
		{name: "items", items: []int{3, 1}, want: `[3,1]`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(t, func(c *gin.Context) { RespondList(c, tc.items) })
			require.Equal(t, http.StatusOK, rec.Code)
			require.JSONEq(t, tc.want, rec.Body.String())
		})
	}
}

func TestRespondStatus(t *testing.T) {
	rec := serve(t, RespondStatus)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":true}`, rec.Body.String())
}
