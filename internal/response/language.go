package response

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"

	"github.com/stemsi/course-planner/internal/model"
)

// ContextKeyLanguage is the Gin context key for the negotiated language.
const ContextKeyLanguage = "language"

var (
	supportedTags = []language.Tag{language.English, language.Chinese}
	matcher       = language.NewMatcher(supportedTags)
)

// Negotiate picks the supported language best matching an Accept-Language
// header value or a ?lang= override. English is the default.
func Negotiate(acceptLanguage, override string) model.Language {
	prefs := []string{override, acceptLanguage}
	for _, p := range prefs {
		if p == "" {
			continue
		}
		tags, _, err := language.ParseAcceptLanguage(p)
		if err != nil || len(tags) == 0 {
			continue
		}
		_, idx, conf := matcher.Match(tags...)
		if conf == language.No {
			continue
		}
		if supportedTags[idx] == language.Chinese {
			return model.LangZH
		}
		return model.LangEN
	}
	return model.LangEN
}

// LanguageMiddleware stores the negotiated language for every request.
func LanguageMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextKeyLanguage, Negotiate(c.GetHeader("Accept-Language"), c.Query("lang")))
		c.Next()
	}
}

// Lang returns the language negotiated for c.
func Lang(c *gin.Context) model.Language {
	if v, ok := c.Get(ContextKeyLanguage); ok {
		if lang, ok := v.(model.Language); ok {
			return lang
		}
	}
	return model.LangEN
}
