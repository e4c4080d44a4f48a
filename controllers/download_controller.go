package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"storefront-service/middleware"
	"storefront-service/models"
	"storefront-service/services"
)

// DownloadController handles digital product downloads for customers
// who paid for them.
type DownloadController struct {
	downloadService services.DownloadService
}

// NewDownloadController creates a new DownloadController.
func NewDownloadController(downloadService services.DownloadService) *DownloadController {
	return &DownloadController{downloadService: downloadService}
}

// Download handles GET /products/download/:productID. Each successful
// call consumes one download from the customer's grant.
func (dc *DownloadController) Download(ctx *gin.Context) {
	userID := middleware.GetUserUUID(ctx)
	if userID == nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	productID, err := uuid.Parse(ctx.Param("productID"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}

	fileURL, svcErr := dc.downloadService.Download(ctx.Request.Context(), *userID, productID)
	if svcErr != nil {
		ctx.JSON(svcErr.Code, gin.H{"error": svcErr.Message})
		return
	}

	ctx.Redirect(http.StatusFound, fileURL)
}

// ListGrants handles GET /products/download/:productID/grants, showing
// the customer's remaining download budget for a product.
func (dc *DownloadController) ListGrants(ctx *gin.Context) {
	userID := middleware.GetUserUUID(ctx)
	if userID == nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	productID, err := uuid.Parse(ctx.Param("productID"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}

	grants, svcErr := dc.downloadService.ListGrants(ctx.Request.Context(), *userID, productID)
	if svcErr != nil {
		ctx.JSON(svcErr.Code, gin.H{"error": svcErr.Message})
		return
	}

	views := make([]grantView, 0, len(grants))
	for _, g := range grants {
		views = append(views, grantView{
			DigitalDownload:    g,
			RemainingDownloads: g.RemainingDownloads(),
		})
	}
	ctx.JSON(http.StatusOK, gin.H{"grants": views})
}

// grantView is a grant plus the downloads-left figure the account page
// shows.
type grantView struct {
	models.DigitalDownload
	RemainingDownloads int `json:"remaining_downloads"`
}
