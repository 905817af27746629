package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"warehouse-system/internal/database/models"
	"warehouse-system/internal/gateway/middleware"
	proposalhandler "warehouse-system/internal/services/proposal/handler"
)

type ProposalHTTPHandler struct {
	proposals *proposalhandler.ProposalHandler
}

func NewProposalHTTPHandler(proposals *proposalhandler.ProposalHandler) *ProposalHTTPHandler {
	return &ProposalHTTPHandler{
		proposals: proposals,
	}
}

func (h *ProposalHTTPHandler) ListProposals(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	proposals, err := h.proposals.ListProposals(ctx, models.ProposalStatus(c.Query("status")))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(proposals))
}

func (h *ProposalHTTPHandler) GetProposal(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	proposal, err := h.proposals.GetProposal(ctx, id)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(proposal))
}

func (h *ProposalHTTPHandler) CreateProposal(c *gin.Context) {
	var req proposalhandler.ProposalRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	proposal, err := h.proposals.CreateProposal(ctx, req, middleware.Actor(c))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse(proposal))
}

func (h *ProposalHTTPHandler) UpdateProposal(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req proposalhandler.ProposalRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	proposal, err := h.proposals.UpdateProposal(ctx, id, req, middleware.Actor(c))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(proposal))
}

func (h *ProposalHTTPHandler) Approve(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	proposal, err := h.proposals.Approve(ctx, id, middleware.Actor(c))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(proposal))
}

func (h *ProposalHTTPHandler) Reject(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req proposalhandler.RejectRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	proposal, err := h.proposals.Reject(ctx, id, middleware.Actor(c), req.Reason)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(proposal))
}

func (h *ProposalHTTPHandler) MarkPurchased(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	proposal, err := h.proposals.MarkPurchased(ctx, id, middleware.Actor(c))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(proposal))
}

func (h *ProposalHTTPHandler) DeleteProposal(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.proposals.DeleteProposal(ctx, id, middleware.Actor(c)); err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResponse("Proposal deleted successfully"))
}
