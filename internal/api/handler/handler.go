package handler

import (
	"github.com/d60-Lab/contest-communication/internal/service"
)

// Handler HTTP 处理器集合
type Handler struct {
	commService service.CommunicationService
}

func NewHandler(commService service.CommunicationService) *Handler {
	return &Handler{commService: commService}
}
