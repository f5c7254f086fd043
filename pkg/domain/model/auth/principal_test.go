package auth_test

import (
	"context"
	"testing"

	"github.com/gaprio/gaprio/pkg/domain/model/auth"
	"github.com/m-mizutani/gt"
)

func TestPrincipalContext(t *testing.T) {
	ctx := context.Background()
	gt.Value(t, auth.PrincipalFromContext(ctx)).Nil()

	ctx = auth.ContextWithPrincipal(ctx, &auth.Principal{UserID: 42, Sub: "42"})
	p := auth.PrincipalFromContext(ctx)
	gt.Value(t, p).NotNil()
	gt.Number(t, p.UserID).Equal(42)
}
