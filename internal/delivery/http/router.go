package http

import (
	"log/slog"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"guestlist/internal/delivery/http/controllers"
	"guestlist/internal/delivery/http/middleware"
	"guestlist/internal/domain"
)

// NewRouter initializes the HTTP router with all application routes.
// Confirmation and lookup endpoints are public; management and check-in
// endpoints require a bearer token.
func NewRouter(
	logger *slog.Logger,
	verifier domain.TokenVerifier,
	authController *controllers.AuthController,
	eventController *controllers.EventController,
	inviteeController *controllers.InviteeController,
) *http.ServeMux {
	mux := http.NewServeMux()
	auth := middleware.RequireAuth(verifier, logger)

	// Auth
	mux.HandleFunc("POST /auth/signup", authController.SignUp)
	mux.HandleFunc("POST /auth/login", authController.Login)

	// Public confirmation flow
	mux.HandleFunc("POST /invitees/confirm", inviteeController.Confirm)
	mux.HandleFunc("POST /invitees/check", inviteeController.Check)
	mux.HandleFunc("GET /invitees/qr/{token}", inviteeController.LookupByQR)
	mux.HandleFunc("GET /events/{eventID}", eventController.Get)

	// Events (organizer)
	mux.HandleFunc("POST /events", auth(eventController.Create))
	mux.HandleFunc("GET /events", auth(eventController.List))
	mux.HandleFunc("PUT /events/{eventID}", auth(eventController.Update))
	mux.HandleFunc("DELETE /events/{eventID}", auth(eventController.Delete))
	mux.HandleFunc("GET /events/{eventID}/invitees", auth(eventController.ListInvitees))

	// Invitees (organizer)
	mux.HandleFunc("POST /invitees", auth(inviteeController.Create))
	mux.HandleFunc("GET /invitees", auth(inviteeController.List))
	mux.HandleFunc("DELETE /invitees/{inviteeID}", auth(inviteeController.Delete))
	mux.HandleFunc("POST /invitees/send", auth(inviteeController.Send))

	// Check-in (door staff)
	mux.HandleFunc("POST /invitees/checkin", auth(inviteeController.DoCheckIn))
	mux.HandleFunc("PUT /invitees/{inviteeID}/checkin", auth(inviteeController.SetCheckedIn))
	mux.HandleFunc("PUT /invitees/{inviteeID}/confirm", auth(inviteeController.SetConfirmed))

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}
