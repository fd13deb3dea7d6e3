package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/student-records-service/internal/cache"
	"github.com/SAP-F-2025/student-records-service/internal/policy"
	"github.com/SAP-F-2025/student-records-service/internal/services"
	"github.com/SAP-F-2025/student-records-service/internal/utils"
)

type HandlerManager struct {
	authHandler       *AuthHandler
	studentHandler    *StudentHandler
	marksHandler      *MarksHandler
	attendanceHandler *AttendanceHandler
	userHandler       *UserHandler
	previewHandler    *PreviewHandler
	authMiddleware    *AuthMiddleware

	services services.ServiceManager
	cache    *cache.CacheManager
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	cacheManager *cache.CacheManager,
	maxUploadBytes int64,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		authHandler:       NewAuthHandler(serviceManager.Auth(), logger),
		studentHandler:    NewStudentHandler(serviceManager.Student(), maxUploadBytes, logger),
		marksHandler:      NewMarksHandler(serviceManager.Marks(), logger),
		attendanceHandler: NewAttendanceHandler(serviceManager.Attendance(), logger),
		userHandler:       NewUserHandler(serviceManager.User(), logger),
		previewHandler:    NewPreviewHandler(serviceManager.Preview(), maxUploadBytes, logger),
		authMiddleware:    NewAuthMiddleware(serviceManager.Auth(), logger),
		services:          serviceManager,
		cache:             cacheManager,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	am := hm.authMiddleware

	api := router.Group("/api")
	api.Use(am.Authenticate())
	{
		auth := api.Group("/auth")
		{
			auth.POST("/login", hm.authHandler.Login)
			auth.POST("/token/refresh", hm.authHandler.Refresh)
			auth.POST("/logout", am.RequireAuth(), hm.authHandler.Logout)
			auth.POST("/register", am.Allow(policy.ActionWrite, policy.ResourceUser), hm.authHandler.Register)
		}

		students := api.Group("/students")
		{
			students.GET("", am.Allow(policy.ActionRead, policy.ResourceStudent), hm.studentHandler.ListStudents)
			students.POST("", am.Allow(policy.ActionWrite, policy.ResourceStudent), hm.studentHandler.CreateStudent)

			// Marks are addressed by student id
			students.GET("/marks", am.Allow(policy.ActionRead, policy.ResourceMarks), hm.marksHandler.ListMarks)
			students.POST("/marks", am.Allow(policy.ActionWrite, policy.ResourceMarks), hm.marksHandler.CreateMarks)
			students.GET("/marks/:id", am.Allow(policy.ActionRead, policy.ResourceMarks), hm.marksHandler.GetStudentMarks)
			students.PUT("/marks/:id", am.Allow(policy.ActionWrite, policy.ResourceMarks), hm.marksHandler.UpdateMarks)
			students.DELETE("/marks/:id", am.Allow(policy.ActionWrite, policy.ResourceMarks), hm.marksHandler.DeleteMarks)

			// Single reads are public
			students.GET("/:id", hm.studentHandler.GetStudent)
			students.GET("/:id/photo", hm.studentHandler.GetStudentPhoto)
			students.PUT("/:id", am.Allow(policy.ActionWrite, policy.ResourceStudent), hm.studentHandler.UpdateStudent)
			students.DELETE("/:id", am.Allow(policy.ActionWrite, policy.ResourceStudent), hm.studentHandler.DeleteStudent)
		}

		attendance := api.Group("/attendance")
		{
			attendance.GET("", am.Allow(policy.ActionRead, policy.ResourceAttendance), hm.attendanceHandler.ListAttendance)
			attendance.POST("", am.Allow(policy.ActionWrite, policy.ResourceAttendance), hm.attendanceHandler.MarkAttendance)
			attendance.DELETE("/:id", am.Allow(policy.ActionWrite, policy.ResourceAttendance), hm.attendanceHandler.DeleteAttendance)
		}

		users := api.Group("/users")
		users.Use(am.Allow(policy.ActionWrite, policy.ResourceUser))
		{
			users.GET("", hm.userHandler.ListUsers)
			users.POST("", hm.userHandler.CreateUser)
			users.GET("/:id", hm.userHandler.GetUser)
			users.PUT("/:id", hm.userHandler.UpdateUser)
			users.DELETE("/:id", hm.userHandler.DeleteUser)
		}
		api.GET("/groups", am.Allow(policy.ActionRead, policy.ResourceUser), hm.userHandler.ListGroups)

		api.POST("/preview", am.Allow(policy.ActionRead, policy.ResourcePreview), hm.previewHandler.PreviewSpreadsheet)
	}

	router.GET("/health", hm.HealthCheck)
}

// HealthCheck reports database and cache status. Only a database failure makes the service unhealthy.
func (hm *HandlerManager) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := gin.H{"database": "ok", "cache": "ok"}

	if err := hm.services.HealthCheck(ctx); err != nil {
		status = http.StatusServiceUnavailable
		checks["database"] = err.Error()
	}

	switch err := hm.cache.HealthCheck(ctx); {
	case errors.Is(err, cache.ErrCacheNotAvailable):
		checks["cache"] = "disabled"
	case err != nil:
		checks["cache"] = err.Error()
	}

	state := "healthy"
	if status != http.StatusOK {
		state = "unhealthy"
	}

	c.JSON(status, gin.H{
		"status":  state,
		"service": "student-records-service",
		"checks":  checks,
	})
}
