package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/fieldserve/backend/internal/config"
	"github.com/fieldserve/backend/internal/db"
	"github.com/fieldserve/backend/internal/http/handlers"
	"github.com/fieldserve/backend/internal/http/middleware"
	"github.com/fieldserve/backend/internal/notify"
	"github.com/fieldserve/backend/internal/schedule"

	_ "github.com/fieldserve/backend/docs"
)

func Router(cfg config.Config, store *db.Store, collection *schedule.Collection, roster *schedule.RosterCache, mutator *schedule.Mutator, notifications *notify.Center, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Admin-Key", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSAllowed == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = []string{cfg.CORSAllowed}
	}
	r.Use(cors.New(corsCfg))

	h := &handlers.Handler{
		Store:         store,
		Collection:    collection,
		Roster:        roster,
		Mutator:       mutator,
		Notifications: notifications,
		Validator:     validator.New(),
		Logger:        logger,
		AdminKey:      cfg.AdminKey,
		NeutralColor:  cfg.NeutralEventColor,
	}

	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")
	{
		api.GET("/schedule/queue", h.ScheduleQueue)
		api.GET("/schedule/events", h.ScheduleEvents)
		api.GET("/team", h.TeamList)
		api.GET("/work-records", h.WorkRecordsList)
		api.GET("/work-records/:id", h.WorkRecordDetails)
		api.GET("/notifications", h.NotificationsList)
	}

	admin := api.Group("")
	admin.Use(middleware.AdminKey(cfg.AdminKey))
	{
		admin.POST("/work-records/:id/assign", h.AssignWorkRecord)
		admin.POST("/work-records/:id/reschedule", h.RescheduleWorkRecord)
		admin.POST("/refresh", h.Refresh)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}
