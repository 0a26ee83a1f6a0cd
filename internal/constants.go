package internal

const (
	COOKIE_ACCESS_TOKEN_NAME = "debtcrm_access_token"
)
