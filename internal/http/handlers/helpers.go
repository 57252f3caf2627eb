package handlers

import (
	"github.com/grantgenius/grantgenius-backend/internal/dto"
	"github.com/grantgenius/grantgenius-backend/internal/service"
)

func toAuthResponse(res *service.AuthResult) dto.AuthResponse {
	return dto.AuthResponse{User: res.User, Tokens: toTokensResponse(res.Tokens)}
}

func toTokensResponse(pair *service.TokenPair) dto.TokensResponse {
	return dto.TokensResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    int64(pair.ExpiresIn.Seconds()),
	}
}
