package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	apperrors "orpheus_go_backend/internal/errors"
	"orpheus_go_backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	gotrue "github.com/supabase-community/gotrue-go"
)

const userKey = "user"

// TokenVerifier turns a Supabase access token into the calling user.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*models.User, error)
}

// JWTVerifier checks HS256 tokens locally with the project's JWT secret.
type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

func (v *JWTVerifier) Verify(_ context.Context, tokenString string) (*models.User, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	sub, _ := claims["sub"].(string)
	id, err := uuid.Parse(sub)
	if err != nil {
		return nil, fmt.Errorf("invalid subject claim: %w", err)
	}
	email, _ := claims["email"].(string)
	return &models.User{ID: id, Email: email}, nil
}

// GoTrueVerifier asks the Supabase auth server who owns the token. Used when
// no JWT secret is configured.
type GoTrueVerifier struct {
	client gotrue.Client
}

func NewGoTrueVerifier(client gotrue.Client) *GoTrueVerifier {
	return &GoTrueVerifier{client: client}
}

func (v *GoTrueVerifier) Verify(_ context.Context, token string) (*models.User, error) {
	resp, err := v.client.WithToken(token).GetUser()
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if resp.ID == uuid.Nil {
		return nil, errors.New("invalid token")
	}
	return &models.User{ID: resp.ID, Email: resp.Email}, nil
}

// UnconfiguredVerifier rejects every token with ErrNotConfigured.
type UnconfiguredVerifier struct{}

func (UnconfiguredVerifier) Verify(context.Context, string) (*models.User, error) {
	return nil, fmt.Errorf("auth: %w", apperrors.ErrNotConfigured)
}

func SetupRoutes(r *gin.Engine, verifier TokenVerifier) {
	auth := r.Group("/auth")
	{
		auth.GET("/user", AuthMiddleware(verifier), getUser)
	}
}

func AuthMiddleware(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := zerolog.Ctx(c.Request.Context())

		var token string
		// Browsers cannot set headers on a websocket upgrade.
		if websocket.IsWebSocketUpgrade(c.Request) {
			token = c.Query("token")
		} else {
			authHeader := c.GetHeader("Authorization")
			if authHeader == "" {
				unauthorized(c, "Authorization header is required")
				return
			}
			bearerToken := strings.Split(authHeader, " ")
			if len(bearerToken) != 2 || !strings.EqualFold(bearerToken[0], "Bearer") {
				unauthorized(c, "Invalid authorization header")
				return
			}
			token = bearerToken[1]
		}
		if token == "" {
			unauthorized(c, "Token is required")
			return
		}

		user, err := verifier.Verify(c.Request.Context(), token)
		if errors.Is(err, apperrors.ErrNotConfigured) {
			apperrors.HandleError(c, err)
			return
		}
		if err != nil {
			log.Debug().Err(err).Msg("Token verification failed")
			unauthorized(c, "Invalid token")
			return
		}

		c.Set(userKey, user)
		c.Request = c.Request.WithContext(
			log.With().Str("user_id", user.ID.String()).Logger().WithContext(c.Request.Context()),
		)
		c.Next()
	}
}

// CurrentUser returns the user stored by AuthMiddleware.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, exists := c.Get(userKey)
	if !exists {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok
}

func getUser(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		unauthorized(c, "User not found in context")
		return
	}
	c.JSON(http.StatusOK, user)
}

func unauthorized(c *gin.Context, message string) {
	err := apperrors.New401Error()
	err.Message = message
	apperrors.HandleError(c, err)
}
