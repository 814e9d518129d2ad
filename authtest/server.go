package authtest

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type user struct {
	id    int64
	nome  string
	email string
	senha string
}

type armazem struct {
	ID         int64  `json:"id"`
	UsuarioID  int64  `json:"usuario_id"`
	Nome       string `json:"nome"`
	Capacidade int64  `json:"capacidade"`
	Estoque    int64  `json:"estoque"`
	GraoID     *int64 `json:"grao_id"`
}

// Server is the fake backend. Create it with [NewServer], register users
// with [Server.Seed], and mount [Server.Handler] on an httptest.Server.
type Server struct {
	mu       sync.Mutex
	users    map[string]*user
	armazens map[int64]*armazem
	nextID   int64

	secret    []byte
	accessTTL time.Duration

	// gen is stamped into every access token; bumping it 401s all tokens
	// issued before the bump.
	gen atomic.Int64

	rejectRefresh atomic.Bool
	refreshDelay  atomic.Int64
	refreshCalls  atomic.Int64
	verifyCalls   atomic.Int64

	mux *http.ServeMux
}

// NewServer creates a backend with a random signing key and a one hour
// access token lifetime.
func NewServer() *Server {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		panic(err)
	}

	s := &Server{
		users:     map[string]*user{},
		armazens:  map[int64]*armazem{},
		secret:    secret,
		accessTTL: time.Hour,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("POST /auth/registro", s.handleRegistro)
	mux.HandleFunc("POST /auth/refresh_token", s.handleRefresh)
	mux.HandleFunc("GET /auth/verify", s.handleVerify)
	mux.HandleFunc("GET /graos", s.guarded(s.handleGraos))
	mux.HandleFunc("GET /armazens", s.guarded(s.handleListArmazens))
	mux.HandleFunc("POST /armazens", s.guarded(s.handleCreateArmazem))
	mux.HandleFunc("PATCH /armazens/{id}", s.guarded(s.handlePatchArmazem))
	mux.HandleFunc("DELETE /armazens/{id}", s.guarded(s.handleDeleteArmazem))
	s.mux = mux

	return s
}

// Handler returns the backend's HTTP surface.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Seed registers a user and returns its id.
func (s *Server) Seed(nome, email, senha string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.users[email] = &user{id: s.nextID, nome: nome, email: email, senha: senha}
	return s.nextID
}

// SetAccessTTL overrides the expires_in reported on issued tokens.
func (s *Server) SetAccessTTL(ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessTTL = ttl
}

// InvalidateAccessTokens force-expires every access token issued so far.
// Refresh tokens stay valid, so the next refresh succeeds.
func (s *Server) InvalidateAccessTokens() {
	s.gen.Add(1)
}

// SetRejectRefresh makes /auth/refresh_token answer 401 until reset.
func (s *Server) SetRejectRefresh(reject bool) {
	s.rejectRefresh.Store(reject)
}

// SetRefreshDelay makes /auth/refresh_token stall before answering.
// Concurrency tests use it to hold a refresh in flight while other callers
// pile up behind it.
func (s *Server) SetRefreshDelay(d time.Duration) {
	s.refreshDelay.Store(int64(d))
}

// RefreshCalls reports how many refresh requests reached the backend.
func (s *Server) RefreshCalls() int64 { return s.refreshCalls.Load() }

// VerifyCalls reports how many verify requests reached the backend.
func (s *Server) VerifyCalls() int64 { return s.verifyCalls.Load() }

/* ==== TOKENS ==== */

func (s *Server) issueToken(userID int64, kind string, ttl time.Duration) string {
	claims := jwt.MapClaims{
		"sub":  strconv.FormatInt(userID, 10),
		"jti":  uuid.NewString(),
		"type": kind,
		"gen":  s.gen.Load(),
		"iat":  time.Now().Unix(),
	}
	if ttl > 0 {
		claims["exp"] = time.Now().Add(ttl).Unix()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		panic(err)
	}
	return signed
}

// parseToken validates signature, expiry, kind, and generation, returning
// the user id.
func (s *Server) parseToken(raw, kind string) (int64, bool) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return 0, false
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, false
	}
	if claims["type"] != kind {
		return 0, false
	}
	if kind == "access" {
		gen, _ := claims["gen"].(float64)
		if int64(gen) != s.gen.Load() {
			return 0, false
		}
	}
	sub, _ := claims["sub"].(string)
	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func (s *Server) bearerUser(r *http.Request) (int64, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return 0, false
	}
	return s.parseToken(header[len(prefix):], "access")
}

func (s *Server) guarded(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := s.bearerUser(r); !ok {
			writeDetail(w, http.StatusUnauthorized, "Token inválido ou expirado")
			return
		}
		h(w, r)
	}
}

/* ==== AUTH HANDLERS ==== */

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
		Senha string `json:"senha"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "corpo inválido")
		return
	}

	s.mu.Lock()
	u, ok := s.users[body.Email]
	ttl := s.accessTTL
	s.mu.Unlock()
	if !ok || u.senha != body.Senha {
		writeDetail(w, http.StatusUnauthorized, "Credenciais inválidas")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"access_token":  s.issueToken(u.id, "access", ttl),
		"refresh_token": s.issueToken(u.id, "refresh", 0),
		"token_type":    "bearer",
		"expires_in":    int64(ttl / time.Second),
	})
}

func (s *Server) handleRegistro(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Nome  string `json:"nome"`
		Email string `json:"email"`
		Senha string `json:"senha"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Nome == "" || body.Email == "" || len(body.Senha) < 6 {
		writeDetail(w, http.StatusUnprocessableEntity, "corpo inválido")
		return
	}

	s.mu.Lock()
	if _, exists := s.users[body.Email]; exists {
		s.mu.Unlock()
		writeDetail(w, http.StatusBadRequest, "Email já cadastrado")
		return
	}
	s.nextID++
	u := &user{id: s.nextID, nome: body.Nome, email: body.Email, senha: body.Senha}
	s.users[body.Email] = u
	ttl := s.accessTTL
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id":            u.id,
		"nome":          u.nome,
		"email":         u.email,
		"access_token":  s.issueToken(u.id, "access", ttl),
		"refresh_token": s.issueToken(u.id, "refresh", 0),
		"token_type":    "bearer",
		"expires_in":    int64(ttl / time.Second),
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.refreshCalls.Add(1)

	if d := time.Duration(s.refreshDelay.Load()); d > 0 {
		time.Sleep(d)
	}

	if s.rejectRefresh.Load() {
		writeDetail(w, http.StatusUnauthorized, "Refresh token inválido")
		return
	}

	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "corpo inválido")
		return
	}

	userID, ok := s.parseToken(body.RefreshToken, "refresh")
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "Refresh token inválido")
		return
	}

	s.mu.Lock()
	ttl := s.accessTTL
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"access_token": s.issueToken(userID, "access", ttl),
		"token_type":   "bearer",
		"expires_in":   int64(ttl / time.Second),
	})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	s.verifyCalls.Add(1)

	userID, ok := s.bearerUser(r)
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "Token inválido ou expirado")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"valid":   true,
		"user_id": userID,
	})
}

/* ==== RESOURCE HANDLERS ==== */

func (s *Server) handleGraos(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, []map[string]interface{}{
		{"id": 1, "nome": "Soja"},
		{"id": 2, "nome": "Milho"},
		{"id": 3, "nome": "Trigo"},
	})
}

func (s *Server) handleListArmazens(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*armazem, 0, len(s.armazens))
	for _, a := range s.armazens {
		out = append(out, a)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateArmazem(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Nome       string `json:"nome"`
		Capacidade int64  `json:"capacidade"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Nome == "" || body.Capacidade <= 0 {
		writeDetail(w, http.StatusUnprocessableEntity, "corpo inválido")
		return
	}

	userID, _ := s.bearerUser(r)

	s.mu.Lock()
	s.nextID++
	a := &armazem{ID: s.nextID, UsuarioID: userID, Nome: body.Nome, Capacidade: body.Capacidade}
	s.armazens[a.ID] = a
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) handlePatchArmazem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "id inválido")
		return
	}
	var body struct {
		Nome       *string `json:"nome"`
		Capacidade *int64  `json:"capacidade"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "corpo inválido")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.armazens[id]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Armazém não encontrado")
		return
	}
	if body.Nome != nil {
		a.Nome = *body.Nome
	}
	if body.Capacidade != nil {
		a.Capacidade = *body.Capacidade
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleDeleteArmazem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "id inválido")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.armazens[id]; !ok {
		writeDetail(w, http.StatusNotFound, "Armazém não encontrado")
		return
	}
	delete(s.armazens, id)
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
