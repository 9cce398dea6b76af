package middlewares

// gin context keys
const (
	CtxRequestID     = "request_id"
	CtxPrincipal     = "auth.principal"
	CtxAccessClaims  = "auth.access_claims"
	CtxRefreshClaims = "auth.refresh_claims"
)

// cookie names shared with the handlers that set them
const (
	AccessCookie  = "accessToken"
	RefreshCookie = "refreshToken"
)
