package middleware

import (
	"context"
	"log"
	"strings"

	"github.com/coreos/go-oidc"
	"github.com/gin-gonic/gin"
)

// NewVerifier builds an OIDC token verifier against the issuer.
func NewVerifier(issuerURL string) (*oidc.IDTokenVerifier, error) {
	provider, err := oidc.NewProvider(context.Background(), issuerURL)
	if err != nil {
		return nil, err
	}
	log.Printf("OIDC verifier initialized (SkipClientIDCheck: true)")
	return provider.Verifier(&oidc.Config{SkipClientIDCheck: true}), nil
}

// RequireAuth verifies the bearer token and puts the subject into the
// request context as user_id.
func RequireAuth(verifier *oidc.IDTokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.AbortWithStatusJSON(401, gin.H{"error": "missing auth"})
			return
		}

		tokenStr := strings.TrimPrefix(auth, "Bearer ")
		if tokenStr == auth {
			c.AbortWithStatusJSON(401, gin.H{"error": "invalid format"})
			return
		}

		idToken, err := verifier.Verify(c.Request.Context(), tokenStr)
		if err != nil {
			log.Printf("[AUTH] VERIFY FAILED: %v", err)
			c.AbortWithStatusJSON(401, gin.H{"error": "invalid token", "details": err.Error()})
			return
		}

		var claims struct {
			Sub string `json:"sub"`
			Azp string `json:"azp"`
		}
		if err := idToken.Claims(&claims); err != nil {
			c.AbortWithStatusJSON(401, gin.H{"error": "claim parse failed"})
			return
		}

		// Manually check azp == "frontend"
		if claims.Azp != "frontend" {
			log.Printf("[AUTH] REJECTED: azp=%s (expected 'frontend')", claims.Azp)
			c.AbortWithStatusJSON(401, gin.H{"error": "invalid client"})
			return
		}

		c.Set("user_id", claims.Sub)
		c.Next()
	}
}
