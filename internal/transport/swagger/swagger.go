package swagger

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"
)

func Handler() http.Handler {
	// Points the UI at the embedded document served by the router
	return httpSwagger.Handler(
		httpSwagger.URL("/openapi.yml"),
	)
}
