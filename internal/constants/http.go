package constants

// ContentTypeHeader is the HTTP Content-Type header name.
const ContentTypeHeader = "Content-Type"

// HostHeader is the HTTP Host header name.
const HostHeader = "Host"

// CookieHeader is the request header carrying cookies.
const CookieHeader = "Cookie"

// SetCookieHeader is the response header carrying cookies.
const SetCookieHeader = "Set-Cookie"

// ForwardedProtoHeader is set by API Gateway and ALB to the client-facing scheme.
const ForwardedProtoHeader = "X-Forwarded-Proto"

// ForwardedPortHeader is set by API Gateway and ALB to the client-facing port.
const ForwardedPortHeader = "X-Forwarded-Port"

// ForwardedForHeader lists the client address chain.
const ForwardedForHeader = "X-Forwarded-For"

// ALBOIDCDataHeader carries the signed user claims JWT added by ALB authentication.
const ALBOIDCDataHeader = "X-Amzn-Oidc-Data"

// ALBOIDCIdentityHeader carries the subject of the ALB authenticated user.
const ALBOIDCIdentityHeader = "X-Amzn-Oidc-Identity"

// ContentTypeJSON is the media type of error responses.
const ContentTypeJSON = "application/json"

// SchemeHTTPS is the secure URL scheme.
const SchemeHTTPS = "https"

// SchemeHTTP is the plain URL scheme.
const SchemeHTTP = "http"

// DefaultHost is used when neither the Host header nor the request context carry a domain.
const DefaultHost = "lambda.local"

// HTTPStatusClientError is the lowest HTTP status code for client errors (400)
const HTTPStatusClientError = 400

// HTTPStatusServerError is the HTTP status code for server errors (500)
const HTTPStatusServerError = 500

// HTTPStatusMax is the upper bound (exclusive) of valid HTTP status codes.
const HTTPStatusMax = 600
