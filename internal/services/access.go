package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	pkgerrors "github.com/yungbote/tutorbridge-backend/internal/pkg/errors"
	"github.com/yungbote/tutorbridge-backend/internal/platform/apierr"
	"github.com/yungbote/tutorbridge-backend/internal/platform/ctxutil"
)

// requireRole returns the caller when authenticated with role. An empty role
// accepts any authenticated caller.
func requireRole(ctx context.Context, role string) (*ctxutil.RequestData, error) {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, apierr.Unauthorized("not_authenticated", pkgerrors.ErrUnauthorized)
	}
	if role != "" && rd.Role != role {
		return nil, apierr.Forbidden("forbidden", fmt.Errorf("%w: %s role required", pkgerrors.ErrForbidden, role))
	}
	return rd, nil
}
