package api

import (
	"context"
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/ojamarket/realtime-api/cache"
	"github.com/ojamarket/realtime-api/databases"
	"github.com/ojamarket/realtime-api/models"
)

// Single-active-token keys. Login overwrites the key, logout deletes it, and
// every authentication cross-checks the presented token against it, so a
// newer login or an explicit logout revokes older tokens immediately.
func userTokenKey(userID string) string {
	return "auth:token:user:" + userID
}

func adminTokenKey(adminID string) string {
	return "auth:token:admin:" + adminID
}

// Authenticator verifies bearer tokens and resolves them to principals. Both
// the REST middleware and the socket handshake authenticate through it.
type Authenticator struct {
	Users  databases.UserDatabase
	Admins databases.AdminDatabase
	Cache  cache.Service
}

// Authenticate verifies the token signature, cross-checks it against the
// stored active token, and loads the account behind it. adminHint selects the
// admin verification path; it never grants anything a valid admin token would
// not. Cache failures reject: authentication fails closed.
func (a *Authenticator) Authenticate(ctx context.Context, token string, adminHint bool) (*models.Principal, error) {
	if token == "" {
		return nil, models.AuthenticationError{Reason: "missing token"}
	}
	if adminHint {
		return a.authenticateAdmin(ctx, token)
	}
	return a.authenticateUser(ctx, token)
}

func (a *Authenticator) authenticateUser(ctx context.Context, token string) (*models.Principal, error) {
	claims, err := verifyToken(token, userSecret())
	if err != nil {
		return nil, models.AuthenticationError{Reason: "invalid token"}
	}
	userID, _ := claims["sub"].(string)
	if userID == "" {
		return nil, models.AuthenticationError{Reason: "invalid token"}
	}

	if err := a.checkActiveToken(ctx, userTokenKey(userID), token); err != nil {
		return nil, err
	}

	user, err := a.Users.FindOne(ctx, bson.M{"_id": userID})
	if err != nil {
		return nil, models.AuthenticationError{Reason: "unknown user"}
	}
	if user.Details.Blocked || user.Details.Deactivated {
		return nil, models.AuthenticationError{Reason: "account disabled"}
	}

	role := user.Details.Role
	if role != models.RoleCustomer && role != models.RoleAgent {
		return nil, models.AuthenticationError{Reason: "unsupported role"}
	}

	return &models.Principal{
		ID:          user.ID,
		Role:        role,
		DisplayName: user.Details.Name,
		Token:       token,
	}, nil
}

func (a *Authenticator) authenticateAdmin(ctx context.Context, token string) (*models.Principal, error) {
	claims, err := verifyToken(token, adminSecret())
	if err != nil {
		return nil, models.AuthenticationError{Reason: "invalid token"}
	}
	if scope, _ := claims["scope"].(string); scope != "admin" {
		return nil, models.AuthenticationError{Reason: "not an admin token"}
	}
	adminID, _ := claims["sub"].(string)
	if adminID == "" {
		return nil, models.AuthenticationError{Reason: "invalid token"}
	}

	if err := a.checkActiveToken(ctx, adminTokenKey(adminID), token); err != nil {
		return nil, err
	}

	oid, err := primitive.ObjectIDFromHex(adminID)
	if err != nil {
		return nil, models.AuthenticationError{Reason: "invalid token"}
	}
	admin, err := a.Admins.FindOne(ctx, bson.M{"_id": oid, "active": true})
	if err != nil {
		return nil, models.AuthenticationError{Reason: "unknown admin"}
	}

	scope := admin.Scope
	if scope == "" {
		scope = models.AdminScopeSupport
	}

	return &models.Principal{
		ID:          admin.ID.Hex(),
		Role:        models.RoleAdmin,
		DisplayName: admin.Name,
		AdminScope:  scope,
		Token:       token,
	}, nil
}

// checkActiveToken compares the presented token to the single active token
// stored at login. A missing key means logged out; a mismatch means a newer
// login superseded this token.
func (a *Authenticator) checkActiveToken(ctx context.Context, key, token string) error {
	stored, err := a.Cache.Get(ctx, key)
	if err != nil {
		if cache.IsMiss(err) {
			return models.AuthenticationError{Reason: "token revoked"}
		}
		zap.S().Errorw("active token check failed", "key", key, "error", err)
		return models.AuthenticationError{Reason: "token verification unavailable"}
	}
	if stored != token {
		return models.AuthenticationError{Reason: "token superseded"}
	}
	return nil
}

func verifyToken(token string, secret []byte) (jwt.MapClaims, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("jwt secret not configured")
	}
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("invalid claims")
	}
	return claims, nil
}

func userSecret() []byte {
	return []byte(os.Getenv("JWT_SECRET"))
}

func adminSecret() []byte {
	if s := os.Getenv("ADMIN_JWT_SECRET"); s != "" {
		return []byte(s)
	}
	return []byte(os.Getenv("JWT_SECRET"))
}
