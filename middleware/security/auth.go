package security

import (
	"net/http"
	"strings"

	"chatserve/global"
	usermodel "chatserve/module/user/model"
	"chatserve/tools/errs"
	jwtlib "chatserve/tools/security"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// gin context key holding the resolved *usermodel.User
const CtxUserKey = "currentUser"

// Auth verifies the Bearer token and loads the account it was issued for.
// Requests without a valid token are aborted with 401.
func Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			abortUnauthorized(c, "missing bearer token")
			return
		}

		claims, err := jwtlib.Verify(jwtlib.DefaultOptions(global.JWTSecret()), token)
		if err != nil {
			abortUnauthorized(c, err.Error())
			return
		}

		uid, err := primitive.ObjectIDFromHex(claims.Subject())
		if err != nil {
			abortUnauthorized(c, "malformed subject")
			return
		}

		var user usermodel.User
		err = user.Collection().FindOne(c.Request.Context(), bson.M{"_id": uid}).Decode(&user)
		if err != nil {
			abortUnauthorized(c, "account not found")
			return
		}

		c.Set(CtxUserKey, &user)
		c.Next()
	}
}

// CurrentUser returns the account resolved by Auth. Only valid on routes
// registered with RouteOpt{IsAuth: true}.
func CurrentUser(c *gin.Context) *usermodel.User {
	v, ok := c.Get(CtxUserKey)
	if !ok {
		return nil
	}
	u, _ := v.(*usermodel.User)
	return u
}

func bearerToken(c *gin.Context) string {
	authz := strings.TrimSpace(c.GetHeader("Authorization"))
	if authz == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		return strings.TrimSpace(authz[len("bearer "):])
	}
	return authz
}

func abortUnauthorized(c *gin.Context, detail string) {
	e := errs.ErrTokenInvalid.WithDetail(detail)
	c.AbortWithStatusJSON(http.StatusUnauthorized, e)
}
