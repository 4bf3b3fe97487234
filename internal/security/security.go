// Package security derives the caller identity of a request from its gateway event.
package security

import (
	"net/http"
	"slices"
	"strings"

	"github.com/runvoy/lambdahost/internal/constants"
	apperrors "github.com/runvoy/lambdahost/internal/errors"
	"github.com/runvoy/lambdahost/internal/servlet"
	"github.com/runvoy/lambdahost/pkg/api"

	"github.com/golang-jwt/jwt/v5"
)

// Scheme names the mechanism that authenticated the caller.
type Scheme string

// Authentication schemes
const (
	SchemeAnonymous Scheme = ""
	SchemeCognito   Scheme = "COGNITO_USER_POOLS"
	SchemeCustom    Scheme = "CUSTOM_AUTHORIZER"
	SchemeIAM       Scheme = "AWS_IAM"
	SchemeALBOIDC   Scheme = "ALB_OIDC"
)

// Principal is the authenticated caller.
type Principal struct {
	Name   string
	ARN    string
	Claims *Claims
}

// Context is the security view of a single request.
type Context struct {
	Scheme    Scheme
	Principal *Principal
	Secure    bool
}

// Authenticated reports whether a caller was identified.
func (c *Context) Authenticated() bool {
	return c != nil && c.Principal != nil
}

// UserPrincipal returns the principal or nil for anonymous callers.
func (c *Context) UserPrincipal() *Principal {
	if c == nil {
		return nil
	}
	return c.Principal
}

// IsUserInRole reports whether the caller belongs to the named Cognito group.
func (c *Context) IsUserInRole(role string) bool {
	if !c.Authenticated() || c.Principal.Claims == nil {
		return false
	}
	return slices.Contains(c.Principal.Claims.Groups(), role)
}

// Write builds the security context of ev. Sources are tried in the order
// Cognito claims, custom authorizer, IAM, ALB OIDC. A request matching none is anonymous.
//
// A SECURITY_CONTEXT_PARSE error is returned when Cognito claims lack a string "sub"
// or carry a malformed time claim. Other unusable inputs yield an anonymous context.
func Write(ev *api.RequestEvent) (*Context, error) {
	sc := &Context{Secure: isSecure(ev)}

	if raw := cognitoClaims(ev); raw != nil {
		principal, err := cognitoPrincipal(raw)
		if err != nil {
			return nil, err
		}
		sc.Scheme, sc.Principal = SchemeCognito, principal
		return sc, nil
	}

	if id := customPrincipalID(ev); id != "" {
		sc.Scheme, sc.Principal = SchemeCustom, &Principal{Name: id}
		return sc, nil
	}

	if arn := iamCaller(ev); arn != "" {
		sc.Scheme, sc.Principal = SchemeIAM, &Principal{Name: arn, ARN: arn}
		return sc, nil
	}

	if principal := albPrincipal(ev.Header); principal != nil {
		sc.Scheme, sc.Principal = SchemeALBOIDC, principal
		return sc, nil
	}

	return sc, nil
}

// FromRequest returns the security context stored on a synthetic request.
// Requests without one are treated as anonymous.
func FromRequest(r *http.Request) *Context {
	if sc, ok := servlet.AttributesFrom(r).Get(servlet.AttrSecurityContext).(*Context); ok {
		return sc
	}
	return &Context{}
}

func isSecure(ev *api.RequestEvent) bool {
	if ev.Context.ClientCert != nil {
		return true
	}
	return strings.EqualFold(ev.Header.Get(constants.ForwardedProtoHeader), constants.SchemeHTTPS)
}

func cognitoClaims(ev *api.RequestEvent) map[string]any {
	switch ev.Kind {
	case api.RestV1:
		claims, _ := ev.Context.Authorizer["claims"].(map[string]any)
		if len(claims) == 0 {
			return nil
		}
		return claims
	case api.HTTPV2:
		if ev.Context.JWT == nil || len(ev.Context.JWT.Claims) == 0 {
			return nil
		}
		return stringClaims(ev.Context.JWT.Claims)
	default:
		return nil
	}
}

func cognitoPrincipal(raw map[string]any) (*Principal, error) {
	sub, present := raw["sub"]
	if _, isString := sub.(string); !present || !isString {
		return nil, apperrors.ErrSecurityContextParse("cognito claims have no string \"sub\" claim", nil)
	}

	claims, err := newClaims(raw)
	if err != nil {
		return nil, apperrors.ErrSecurityContextParse("malformed cognito claims", err)
	}

	name := claims.Username()
	if name == "" {
		name = claims.Subject()
	}
	return &Principal{Name: name, Claims: claims}, nil
}

func customPrincipalID(ev *api.RequestEvent) string {
	id, _ := ev.Context.Authorizer["principalId"].(string)
	return id
}

func iamCaller(ev *api.RequestEvent) string {
	if ev.Context.Identity.UserARN != "" {
		return ev.Context.Identity.UserARN
	}
	if mi := ev.Context.MeshIdentity; mi != nil && mi.Type == string(SchemeIAM) {
		return mi.Principal
	}
	return ""
}

// albPrincipal reads the claims ALB forwards after OIDC authentication.
// The token signature is not verified; ALB strips client-supplied values of this header.
func albPrincipal(header http.Header) *Principal {
	token := header.Get(constants.ALBOIDCDataHeader)
	if token == "" {
		return nil
	}

	raw := jwt.MapClaims{}
	parser := jwt.NewParser(jwt.WithPaddingAllowed())
	if _, _, err := parser.ParseUnverified(token, raw); err != nil {
		return nil
	}

	claims, err := newClaims(raw)
	if err != nil {
		return nil
	}

	name := header.Get(constants.ALBOIDCIdentityHeader)
	if name == "" {
		name = claims.Subject()
	}
	if name == "" {
		name = claims.Email()
	}
	if name == "" {
		return nil
	}
	return &Principal{Name: name, Claims: claims}
}
