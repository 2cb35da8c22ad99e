package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActorMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newRouter := func(captured *int64, admin, payments *bool) *gin.Engine {
		router := gin.New()
		router.Use(CorrelationID())
		router.Use(Actor())
		router.GET("/me", func(c *gin.Context) {
			*captured = GetActorID(c)
			*admin = IsAdmin(c)
			*payments = IsPaymentService(c)
			c.Status(http.StatusOK)
		})
		return router
	}

	tests := []struct {
		name           string
		userID         string
		role           string
		expectedStatus int
		expectedActor  int64
		expectedAdmin  bool
		expectedPayer  bool
	}{
		{name: "valid renter", userID: "11", expectedStatus: http.StatusOK, expectedActor: 11},
		{name: "admin role", userID: "3", role: RoleAdmin, expectedStatus: http.StatusOK, expectedActor: 3, expectedAdmin: true, expectedPayer: true},
		{name: "payment service role", userID: "900", role: RolePaymentService, expectedStatus: http.StatusOK, expectedActor: 900, expectedPayer: true},
		{name: "unknown role", userID: "11", role: "superuser", expectedStatus: http.StatusOK, expectedActor: 11},
		{name: "missing header", userID: "", expectedStatus: http.StatusUnauthorized},
		{name: "not a number", userID: "abc", expectedStatus: http.StatusUnauthorized},
		{name: "not positive", userID: "0", expectedStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var actor int64
			var admin, payments bool
			router := newRouter(&actor, &admin, &payments)

			req, _ := http.NewRequest(http.MethodGet, "/me", nil)
			if tt.userID != "" {
				req.Header.Set(ActorIDHeader, tt.userID)
			}
			if tt.role != "" {
				req.Header.Set(ActorRoleHeader, tt.role)
			}
			req.Header.Set(CorrelationIDHeader, "corr-1")
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			assert.Equal(t, tt.expectedActor, actor)
			assert.Equal(t, tt.expectedAdmin, admin)
			assert.Equal(t, tt.expectedPayer, payments)

			if tt.expectedStatus == http.StatusUnauthorized {
				var body map[string]interface{}
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
				errorField, ok := body["error"].(map[string]interface{})
				require.True(t, ok)
				assert.Equal(t, "UNAUTHORIZED", errorField["code"])
				assert.Equal(t, "corr-1", body["correlation_id"])
			}
		})
	}
}
