package walletd

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/asaskevich/govalidator"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
	"github.com/twitchtv/twirp"
)

func (s *Server) Handler() http.Handler {
	m := chi.NewMux()
	m.Use(middleware.Recoverer)
	m.Use(middleware.RealIP)
	m.Use(middleware.Logger)
	m.Use(middleware.Heartbeat("/hc"))
	m.Use(cors.AllowAll().Handler)
	m.Use(handleAuth(s.cfg.Issuer, []byte(s.cfg.Secret)))

	m.Post("/wallet", s.initWallet)
	m.Get("/wallet", s.getWallet)
	m.Get("/balance", s.getBalance)
	m.Post("/balance/refresh", s.refreshBalance)
	m.Get("/rates", s.getRates)
	m.Get("/currencies", s.getCurrencies)
	m.Put("/currency", s.putCurrency)
	m.Get("/convert", s.convert)
	m.Get("/networks", s.listNetworks)
	m.Put("/network", s.changeNetwork)
	m.Get("/transactions/{hash}", s.getTransaction)
	m.Post("/signout", s.signOut)

	return m
}

func renderJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(200)

	_ = json.NewEncoder(w).Encode(v)
}

func renderErr(w http.ResponseWriter, err error) {
	var terr twirp.Error
	if !errors.As(err, &terr) {
		terr = twirp.InternalErrorWith(err)
	}

	_ = twirp.WriteError(w, terr)
}

func (s *Server) initWallet(w http.ResponseWriter, r *http.Request) {
	if err := s.session.Init(r.Context()); err != nil {
		slog.Error("init wallet", slog.Any("err", err))
		renderErr(w, err)
		return
	}

	s.getWallet(w, r)
}

func (s *Server) getWallet(w http.ResponseWriter, r *http.Request) {
	wallet := s.session.CurrentWallet()
	if wallet == nil {
		renderErr(w, twirp.NotFoundError("no wallet"))
		return
	}

	renderJSON(w, map[string]interface{}{
		"id":              wallet.ID(),
		"payment_address": wallet.PaymentAddress(),
	})
}

func (s *Server) getBalance(w http.ResponseWriter, r *http.Request) {
	balance, ok := s.session.Balances().Current()
	if !ok {
		renderErr(w, twirp.NewError(twirp.FailedPrecondition, "no wallet"))
		return
	}

	renderJSON(w, balance)
}

func (s *Server) refreshBalance(w http.ResponseWriter, r *http.Request) {
	if err := s.session.Balances().Refresh(r.Context()); err != nil {
		if errors.Is(err, ErrBalanceNotInitialized) {
			renderErr(w, twirp.NewError(twirp.FailedPrecondition, "no wallet"))
			return
		}

		renderErr(w, twirp.NewError(twirp.Unavailable, err.Error()))
		return
	}

	balance, _ := s.session.Balances().Current()
	renderJSON(w, balance)
}

func (s *Server) getRates(w http.ResponseWriter, r *http.Request) {
	renderJSON(w, s.session.Rates().Rates(r.Context()))
}

func (s *Server) getCurrencies(w http.ResponseWriter, r *http.Request) {
	codes, err := s.session.Rates().Currencies(r.Context())
	if err != nil {
		renderErr(w, twirp.NewError(twirp.Unavailable, err.Error()))
		return
	}

	renderJSON(w, map[string]interface{}{"currencies": codes})
}

func (s *Server) putCurrency(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Code string `json:"code"`
	}

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		renderErr(w, twirp.InvalidArgumentError("code", "invalid body"))
		return
	}

	if err := s.session.SelectCurrency(body.Code); err != nil {
		if errors.Is(err, ErrInvalidCurrency) {
			renderErr(w, twirp.InvalidArgumentError("code", "unknown currency"))
			return
		}

		renderErr(w, err)
		return
	}

	renderJSON(w, map[string]string{"currency": body.Code})
}

func (s *Server) convert(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	amount, err := decimal.NewFromString(q.Get("amount"))
	if err != nil {
		renderErr(w, twirp.InvalidArgumentError("amount", "invalid amount"))
		return
	}

	direction := cast.ToString(q.Get("direction"))
	if direction == "" {
		direction = "to_local"
	}

	if !govalidator.IsIn(direction, "to_local", "to_crypto", "display") {
		renderErr(w, twirp.InvalidArgumentError("direction", "invalid direction"))
		return
	}

	code := q.Get("currency")
	if code == "" {
		code, err = s.session.SelectedCurrency()
		if err != nil {
			renderErr(w, err)
			return
		}
	}

	if direction == "display" && !IsKnownCurrency(code) {
		renderErr(w, twirp.InvalidArgumentError("currency", "unknown currency"))
		return
	}

	rates := s.session.Rates().Rates(r.Context())

	switch direction {
	case "to_local":
		renderJSON(w, map[string]string{"result": CryptoToLocal(amount, rates, code).String()})
	case "to_crypto":
		renderJSON(w, map[string]string{"result": LocalToCrypto(amount, rates, code).String()})
	case "display":
		display, err := CryptoToLocalString(amount, rates, code)
		if err != nil {
			renderErr(w, twirp.InvalidArgumentError("currency", "unknown currency"))
			return
		}

		renderJSON(w, map[string]string{"result": display})
	}
}

func (s *Server) listNetworks(w http.ResponseWriter, r *http.Request) {
	current, err := ReadNetwork(s.db, s.session.Networks())
	if err != nil {
		renderErr(w, err)
		return
	}

	renderJSON(w, map[string]interface{}{
		"networks": s.session.Networks().All(),
		"current":  current,
		"default":  s.session.Networks().Default(),
	})
}

func (s *Server) changeNetwork(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID string `json:"id"`
	}

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		renderErr(w, twirp.InvalidArgumentError("id", "invalid body"))
		return
	}

	target, ok := s.session.Networks().Get(body.ID)
	if !ok {
		renderErr(w, twirp.NotFoundError("unknown network"))
		return
	}

	if user, ok := UserFrom(r.Context()); ok {
		slog.Info("network switch requested", slog.String("user", user.ID), slog.String("network", target.ID))
	}

	if err := s.session.Switcher().Switch(r.Context(), target); err != nil {
		if errors.Is(err, ErrSwitchInFlight) {
			renderErr(w, twirp.NewError(twirp.Aborted, "switch already in flight"))
			return
		}

		renderErr(w, twirp.NewError(twirp.Unavailable, err.Error()))
		return
	}

	renderJSON(w, target)
}

func (s *Server) getTransaction(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")
	if !govalidator.IsHexadecimal(strings.TrimPrefix(hash, "0x")) {
		renderErr(w, twirp.InvalidArgumentError("hash", "invalid hash"))
		return
	}

	payment, err := s.session.TransactionStatus(r.Context(), hash)
	if err != nil {
		renderErr(w, twirp.NewError(twirp.Unavailable, err.Error()))
		return
	}

	renderJSON(w, payment)
}

func (s *Server) signOut(w http.ResponseWriter, r *http.Request) {
	if user, ok := UserFrom(r.Context()); ok {
		slog.Info("sign out requested", slog.String("user", user.ID))
	}

	if err := s.session.ClearUserData(); err != nil {
		slog.Error("sign out", slog.Any("err", err))
		renderErr(w, err)
		return
	}

	renderJSON(w, map[string]bool{"ok": true})
}
