package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"dropshare/newsletter"
	"dropshare/registry"

	"github.com/rs/zerolog/log"
)

// SubscribeRequest is the body of POST /api/newsletter/subscribe
type SubscribeRequest struct {
	Email  string `json:"email"`
	Source string `json:"source,omitempty"`
}

// UnsubscribeRequest identifies the subscriber by email or by the token from the welcome mail
type UnsubscribeRequest struct {
	Email string `json:"email,omitempty"`
	Token string `json:"token,omitempty"`
}

func (h *ShareHandler) newsletterEnabled(w http.ResponseWriter) bool {
	if h.newsletter == nil {
		SendJSONError(w, http.StatusServiceUnavailable, CodeNewsletterDisabled, errors.New("newsletter is disabled"), "")
		return false
	}
	return true
}

// Subscribe handles POST /api/newsletter/subscribe
// @Summary Subscribe to the newsletter
// @Tags Newsletter
// @Accept json
// @Produce json
// @Param request body SubscribeRequest true "Subscriber"
// @Success 201 {object} map[string]string "Subscribed"
// @Success 200 {object} map[string]string "Already subscribed"
// @Failure 400 {object} ErrorResponse "Invalid email"
// @Router /api/newsletter/subscribe [post]
func (h *ShareHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	if !h.newsletterEnabled(w) {
		return
	}

	var input SubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		SendJSONError(w, http.StatusBadRequest, CodeInvalidRequest, errors.New("invalid request body"), "")
		return
	}
	if input.Source == "" {
		input.Source = "web"
	}

	ctx, cancel := h.redisContext(r)
	defer cancel()

	sub, created, err := h.newsletter.Subscribe(ctx, input.Email, input.Source)
	if err != nil {
		h.writeNewsletterError(w, err)
		return
	}

	status, message := http.StatusOK, "Already subscribed"
	if created {
		status, message = http.StatusCreated, "Subscribed"
	}
	SendJSONSuccess(w, status, map[string]string{
		"message": message,
		"email":   sub.Email,
	})
}

// Unsubscribe handles POST /api/newsletter/unsubscribe and the GET link from the welcome mail
// @Summary Unsubscribe from the newsletter
// @Tags Newsletter
// @Accept json
// @Produce json
// @Param request body UnsubscribeRequest false "Email or token"
// @Param token query string false "Unsubscribe token"
// @Success 200 {object} map[string]string "Unsubscribed"
// @Failure 404 {object} ErrorResponse "Not subscribed"
// @Router /api/newsletter/unsubscribe [post]
func (h *ShareHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	if !h.newsletterEnabled(w) {
		return
	}

	input := UnsubscribeRequest{Token: r.URL.Query().Get("token")}
	if r.Method == http.MethodPost && input.Token == "" {
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			SendJSONError(w, http.StatusBadRequest, CodeInvalidRequest, errors.New("invalid request body"), "")
			return
		}
	}

	ctx, cancel := h.redisContext(r)
	defer cancel()

	var err error
	switch {
	case input.Token != "":
		err = h.newsletter.UnsubscribeByToken(ctx, input.Token)
	case input.Email != "":
		err = h.newsletter.Unsubscribe(ctx, input.Email)
	default:
		SendJSONError(w, http.StatusBadRequest, CodeInvalidRequest, errors.New("email or token required"), "")
		return
	}
	if err != nil {
		h.writeNewsletterError(w, err)
		return
	}

	SendJSONSuccess(w, http.StatusOK, map[string]string{"message": "Unsubscribed"})
}

func (h *ShareHandler) writeNewsletterError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, newsletter.ErrInvalidEmail):
		SendJSONError(w, http.StatusBadRequest, CodeInvalidEmail, err, "")
	case errors.Is(err, newsletter.ErrNotSubscribed):
		SendJSONError(w, http.StatusNotFound, CodeNotSubscribed, err, "")
	default:
		log.Error().Err(err).Msg("Newsletter operation failed")
		SendJSONError(w, http.StatusInternalServerError, registry.CodeServerError, errors.New("internal server error"), "")
	}
}
