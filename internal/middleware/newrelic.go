package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
)

// TransactionAttributes annotates the New Relic transaction started by nrgin
// with the request id, the authenticated user and any request errors.
func TransactionAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		txn := nrgin.Transaction(c)
		if txn == nil {
			return
		}

		txn.AddAttribute("request_id", GetRequestID(c))
		if userID := c.GetString(userIDKey); userID != "" {
			txn.AddAttribute("user_id", userID)
		}
		for _, err := range c.Errors {
			txn.NoticeError(err.Err)
		}
	}
}
