package jwt

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/timesheet-backend-go/internal/domain/user"
	"github.com/go-chi/jwtauth/v5"
)

// ActorFromContext reads the caller from the verified token in ctx.
func ActorFromContext(ctx context.Context) (user.Actor, error) {
	_, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return user.Actor{}, fmt.Errorf("failed to extract claims from context: %w", err)
	}
	return ActorFromClaims(claims)
}

// ActorFromClaims maps access token claims onto an Actor.
func ActorFromClaims(claims map[string]interface{}) (user.Actor, error) {
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return user.Actor{}, fmt.Errorf("user_id claim is missing or invalid: %w", user.ErrInvalidClaims)
	}

	companyID, ok := claims["company_id"].(string)
	if !ok || companyID == "" {
		return user.Actor{}, fmt.Errorf("company_id claim is missing or invalid: %w", user.ErrCompanyIDRequired)
	}

	role, _ := claims["role"].(string)

	actor := user.Actor{
		UserID:    userID,
		CompanyID: companyID,
		Role:      user.Role(role),
	}
	if employeeID, ok := claims["employee_id"].(string); ok && employeeID != "" {
		actor.EmployeeID = &employeeID
	}
	return actor, nil
}

// WithActor returns ctx carrying a freshly signed token for actor, as the
// jwtauth Verifier middleware would. Used by background jobs and tests.
func WithActor(ctx context.Context, svc Service, actor user.Actor) (context.Context, error) {
	tokenString, _, err := svc.GenerateAccessToken(actor, "")
	if err != nil {
		return nil, err
	}
	token, err := svc.JWTAuth().Decode(tokenString)
	if err != nil {
		return nil, err
	}
	return jwtauth.NewContext(ctx, token, nil), nil
}
