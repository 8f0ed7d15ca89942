package usecase

import (
	"cinema-core/internal/data/lock"
	"cinema-core/internal/data/repository"
	"cinema-core/internal/versiontoken"

	"go.uber.org/zap"
)

type Service struct {
	Movie  MovieService
	Ticket TicketService
	User   UserService
}

func NewService(repo *repository.Repository, tokens versiontoken.Protocol, locker lock.Locker, log *zap.Logger) *Service {
	return &Service{
		Movie:  NewMovieService(repo, tokens, locker, log),
		Ticket: NewTicketService(repo, tokens, locker, log),
		User:   NewUserService(repo, tokens, locker, log),
	}
}
