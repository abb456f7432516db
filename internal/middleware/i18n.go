// internal/middleware/i18n.go
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/registration-backend/internal/i18n"
)

// I18nMiddleware picks the first supported language of Accept-Language and
// falls back to defaultLang.
func I18nMiddleware(defaultLang string) gin.HandlerFunc {
	if defaultLang == "" {
		defaultLang = "en"
	}

	return func(c *gin.Context) {
		lang := defaultLang

		// Handle cases like "fr-FR,fr;q=0.9,en;q=0.8"
		for _, candidate := range strings.Split(c.GetHeader("Accept-Language"), ",") {
			tag := strings.TrimSpace(strings.Split(candidate, ";")[0])
			if tag == "" {
				continue
			}
			base := strings.ToLower(strings.SplitN(strings.ReplaceAll(tag, "_", "-"), "-", 2)[0])
			if i18n.Supports(base) {
				lang = base
				break
			}
		}

		// Set language in context
		c.Set("lang", lang)
		c.Header("Content-Language", lang)
		c.Next()
	}
}
