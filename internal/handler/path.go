package handler

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/josh-kwaku/acquisim/internal/domain"
)

func sessionIDFromPath(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func cardFromPath(r *http.Request) (domain.CardNumber, *AppError) {
	card, err := domain.ParseCardNumber(r.PathValue("card"))
	if err != nil {
		return domain.CardNumber{}, ErrInvalidCardNumber
	}
	return card, nil
}
