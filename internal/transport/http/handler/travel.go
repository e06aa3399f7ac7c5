package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"travelchat/internal/app"
	"travelchat/internal/transport/http/middleware"
	"travelchat/internal/transport/http/response"
)

type TravelHandler struct {
	travel *app.TravelService
}

type SendMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

type SelectDatesRequest struct {
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`
}

type SelectGuestsRequest struct {
	Adults   int `json:"adults" binding:"min=1"`
	Children int `json:"children" binding:"min=0"`
}

func NewTravelHandler(travel *app.TravelService) *TravelHandler {
	return &TravelHandler{travel: travel}
}

func (h *TravelHandler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.travel.Send(c.Request.Context(), app.SendInput{
		OwnerID:   middleware.OwnerID(c),
		SessionID: c.Param("id"),
		Text:      req.Text,
	})
	h.respond(c, result, err)
}

func (h *TravelHandler) SelectDates(c *gin.Context) {
	var req SelectDatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.travel.SelectDates(c.Request.Context(), app.DatesInput{
		OwnerID:   middleware.OwnerID(c),
		SessionID: c.Param("id"),
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	})
	h.respond(c, result, err)
}

func (h *TravelHandler) SelectGuests(c *gin.Context) {
	var req SelectGuestsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.travel.SelectGuests(c.Request.Context(), app.GuestsInput{
		OwnerID:   middleware.OwnerID(c),
		SessionID: c.Param("id"),
		Adults:    req.Adults,
		Children:  req.Children,
	})
	h.respond(c, result, err)
}

func (h *TravelHandler) respond(c *gin.Context, result *app.TurnResult, err error) {
	if err != nil {
		switch {
		case errors.Is(err, app.ErrMessageEmpty):
			response.Error(c, http.StatusBadRequest, response.CodeMessageEmpty, err.Error())
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "chat turn failed")
		}
		return
	}
	response.OK(c, result)
}
