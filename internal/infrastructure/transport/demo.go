package transport

import (
	"fmt"
	"net/http"
	"strings"

	"testgen/internal/domain/entity"
)

// Demo endpoints used to check front-end wiring. None of them touch state.

type statusResp struct {
	Status string `json:"status"`
}

type postsResp struct {
	Posts []entity.Post `json:"posts"`
}

type greetReq struct {
	Message string `json:"message"`
}

type greetResp struct {
	Message string `json:"message"`
}

type askReq struct {
	Question string `json:"question"`
}

type askResp struct {
	Answer string `json:"answer"`
}

// GET /status
func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResp{Status: "OK"})
}

// GET /posts
func (h *Handler) handlePosts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, postsResp{Posts: entity.DemoPosts})
}

// POST /greet
func (h *Handler) handleGreet(w http.ResponseWriter, r *http.Request) {
	req, err := decode[greetReq](w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Bad request")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "Message is required")
		return
	}
	writeJSON(w, http.StatusOK, greetResp{Message: req.Message + " is OK!"})
}

// POST /ask
func (h *Handler) handleAsk(w http.ResponseWriter, r *http.Request) {
	req, err := decode[askReq](w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Bad request, %v", err))
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "Question is required")
		return
	}
	writeJSON(w, http.StatusOK, askResp{Answer: "You asked: " + req.Question})
}
