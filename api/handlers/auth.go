package handlers

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"

	"github.com/ojamarket/realtime-api/api"
	"github.com/ojamarket/realtime-api/cache"
	"github.com/ojamarket/realtime-api/config"
	"github.com/ojamarket/realtime-api/databases"
	"github.com/ojamarket/realtime-api/models"
)

// tokenTTL bounds both the JWT expiry and the active-token cache entry
const tokenTTL = 24 * time.Hour

// Auth exposes the login and logout endpoints. Each login mints a JWT and
// stores it as the account's single active token; a second login or a logout
// revokes the previous token everywhere.
type Auth struct {
	UDB   databases.UserDatabase
	ADB   databases.AdminDatabase
	PTDB  databases.PushTokenDatabase
	Cache cache.Service
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
	User  struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Role   string `json:"role"`
		Avatar string `json:"avatar,omitempty"`
	} `json:"user"`
}

// LoginHandler authenticates a customer or agent by email and password and
// returns a fresh bearer token
func (h Auth) LoginHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("invalid request body", http.StatusBadRequest, w, err)
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || req.Password == "" {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(models.ErrorResponse{Success: false, Error: "email and password required", Code: "VALIDATION_ERROR"})
		return
	}

	user, err := h.UDB.FindOne(r.Context(), bson.M{"user.email": email})
	if err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(models.ErrorResponse{Success: false, Error: "invalid credentials", Code: "INVALID_CREDENTIALS"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Details.Password), []byte(req.Password)); err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(models.ErrorResponse{Success: false, Error: "invalid credentials", Code: "INVALID_CREDENTIALS"})
		return
	}
	if user.Details.Blocked || user.Details.Deactivated {
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(models.ErrorResponse{Success: false, Error: "account disabled", Code: "ACCOUNT_DISABLED"})
		return
	}

	jwtSecret := []byte(os.Getenv("JWT_SECRET"))
	if len(jwtSecret) == 0 {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(models.ErrorResponse{Success: false, Error: "server misconfigured", Code: "CONFIG_ERROR"})
		return
	}

	claims := jwt.MapClaims{
		"sub":  user.ID,
		"role": user.Details.Role,
		"name": user.Details.Name,
		"typ":  "access",
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(jwtSecret)
	if err != nil {
		config.ErrorStatus("token generation failed", http.StatusInternalServerError, w, err)
		return
	}

	// store as the single active token: fail the login rather than hand out a
	// token that Authenticate would then reject
	if err := h.Cache.Set(r.Context(), "auth:token:user:"+user.ID, signed, tokenTTL); err != nil {
		config.ErrorStatus("failed to register session", http.StatusInternalServerError, w, err)
		return
	}

	var resp loginResponse
	resp.Token = signed
	resp.User.ID = user.ID
	resp.User.Name = user.Details.Name
	resp.User.Role = user.Details.Role
	resp.User.Avatar = user.Details.Avatar

	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

type adminLoginResponse struct {
	Token string `json:"token"`
	Admin struct {
		ID    string   `json:"id"`
		Email string   `json:"email"`
		Name  string   `json:"name"`
		Roles []string `json:"roles"`
		Scope string   `json:"scope"`
	} `json:"admin"`
}

// AdminLoginHandler handles admin login via email/password and returns a JWT
func (h Auth) AdminLoginHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("invalid request body", http.StatusBadRequest, w, err)
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || req.Password == "" {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(models.ErrorResponse{Success: false, Error: "email and password required", Code: "VALIDATION_ERROR"})
		return
	}

	admin, err := h.ADB.FindOne(r.Context(), bson.M{"email": email, "active": true})
	if err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(models.ErrorResponse{Success: false, Error: "invalid credentials", Code: "INVALID_CREDENTIALS"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte(req.Password)); err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(models.ErrorResponse{Success: false, Error: "invalid credentials", Code: "INVALID_CREDENTIALS"})
		return
	}

	jwtSecret := []byte(os.Getenv("ADMIN_JWT_SECRET"))
	if len(jwtSecret) == 0 {
		jwtSecret = []byte(os.Getenv("JWT_SECRET"))
	}
	if len(jwtSecret) == 0 {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(models.ErrorResponse{Success: false, Error: "server misconfigured", Code: "CONFIG_ERROR"})
		return
	}

	claims := jwt.MapClaims{
		"sub":   admin.ID.Hex(),
		"email": admin.Email,
		"roles": admin.Roles,
		"scope": "admin",
		"typ":   "access",
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(jwtSecret)
	if err != nil {
		config.ErrorStatus("token generation failed", http.StatusInternalServerError, w, err)
		return
	}

	if err := h.Cache.Set(r.Context(), "auth:token:admin:"+admin.ID.Hex(), signed, tokenTTL); err != nil {
		config.ErrorStatus("failed to register session", http.StatusInternalServerError, w, err)
		return
	}

	var resp adminLoginResponse
	resp.Token = signed
	resp.Admin.ID = admin.ID.Hex()
	resp.Admin.Email = admin.Email
	resp.Admin.Name = admin.Name
	resp.Admin.Roles = admin.Roles
	resp.Admin.Scope = admin.Scope

	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

// LogoutHandler revokes the caller's active token. Socket handshakes and REST
// requests with the revoked token fail from here on.
func (h Auth) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	p := api.PrincipalFrom(r.Context())
	if p == nil {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(models.ErrorResponse{Success: false, Error: "unauthorized", Code: "UNAUTHORIZED"})
		return
	}

	key := "auth:token:user:" + p.ID
	if p.IsAdmin() {
		key = "auth:token:admin:" + p.ID
	}
	if err := h.Cache.Del(r.Context(), key); err != nil {
		config.ErrorStatus("failed to revoke token", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": "logged out"})
}

type pushTokenRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

// RegisterPushTokenHandler stores or refreshes the caller's device push token
func (h Auth) RegisterPushTokenHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	p := api.PrincipalFrom(r.Context())
	if p == nil {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(models.ErrorResponse{Success: false, Error: "unauthorized", Code: "UNAUTHORIZED"})
		return
	}

	var req pushTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(models.ErrorResponse{Success: false, Error: "token required", Code: "VALIDATION_ERROR"})
		return
	}

	_, err := h.PTDB.UpdateOne(r.Context(),
		bson.M{"userID": p.ID, "token": req.Token},
		bson.M{"$set": bson.M{
			"userID":    p.ID,
			"token":     req.Token,
			"platform":  req.Platform,
			"updatedAt": primitive.NewDateTimeFromTime(time.Now().UTC()),
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		config.ErrorStatus("failed to register push token", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": "push token registered"})
}
