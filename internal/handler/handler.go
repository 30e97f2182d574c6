package handler

import (
	"github.com/Caskiuz/nemy-marketplace/internal/audit"
	"github.com/Caskiuz/nemy-marketplace/internal/settlement"
	"github.com/Caskiuz/nemy-marketplace/internal/storage"
)

type Handler struct {
	storage storage.Storage
	engine  *settlement.Engine
	auditor *audit.Checker
}

func NewHandler(storage storage.Storage, engine *settlement.Engine, auditor *audit.Checker) *Handler {
	return &Handler{
		storage: storage,
		engine:  engine,
		auditor: auditor,
	}
}
