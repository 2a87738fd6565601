package health

import (
	"net/http"

	"github.com/go-chi/render"

	"qrtrack/lib/api/response"
)

type Status struct {
	Status string `json:"status"`
}

func Check() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, response.Ok(Status{Status: "OK"}))
	}
}
