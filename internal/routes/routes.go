package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"surgical-records-server/internal/catalog"
	"surgical-records-server/internal/config"
	"surgical-records-server/internal/handlers"
	"surgical-records-server/internal/metrics"
	"surgical-records-server/internal/middleware"
	"surgical-records-server/internal/models"
	"surgical-records-server/internal/storage"
)

// Dependencies are the shared services the handlers are built from.
type Dependencies struct {
	DB       *gorm.DB
	Config   *config.Config
	Log      *zap.Logger
	Metrics  *metrics.Collector
	Store    storage.Store
	Registry *catalog.Registry
}

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, deps Dependencies) {
	db, cfg := deps.DB, deps.Config
	manager := catalog.NewManager(db, deps.Log, deps.Metrics)
	cs := handlers.Catalogs{Manager: manager, Registry: deps.Registry}
	uploader := &handlers.Uploader{
		Store:    deps.Store,
		Metrics:  deps.Metrics,
		Log:      deps.Log,
		MaxBytes: cfg.Storage.MaxUploadBytes,
	}

	authHandler := handlers.NewAuthHandler(db, cfg)
	userHandler := handlers.NewUserHandler(db)
	catalogHandler := handlers.NewCatalogHandler(manager, deps.Registry)
	patientHandler := handlers.NewPatientHandler(db, cs)
	appointmentHandler := handlers.NewAppointmentHandler(db, cs)
	consultationHandler := handlers.NewConsultationHandler(db, cs)
	medicalRecordHandler := handlers.NewMedicalRecordHandler(db, cs, uploader)
	procedureHandler := handlers.NewProcedureHandler(db, cs, uploader)
	reportHandler := handlers.NewSurgicalReportHandler(db, cs, uploader)
	pathologyHandler := handlers.NewPathologyHandler(db, cs, uploader)
	pdfHandler := handlers.NewReportHandler(db, cs, cfg.Report, deps.Metrics)
	healthHandler := handlers.NewHealthHandler(db, deps.Store)

	// Public routes (no authentication required)
	router.GET("/health", healthHandler.Health)
	router.GET("/health/db", healthHandler.Database)
	router.GET("/health/storage", healthHandler.Storage)
	router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	if local, ok := deps.Store.(*storage.LocalStore); ok {
		router.StaticFS(local.BasePath(), http.Dir(local.Dir()))
	}

	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/login", authHandler.Login)
		authRoutes.POST("/refresh", authHandler.RefreshToken)
		authRoutes.POST("/logout", authHandler.Logout)
	}

	// Protected routes (authentication required)
	private := router.Group("")
	private.Use(middleware.AuthMiddleware(cfg.JWT))
	{
		private.GET("/auth/verify", authHandler.Verify)
		private.PUT("/auth/credentials", authHandler.UpdateCredentials)

		userRoutes := private.Group("/usuarios")
		userRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin))
		{
			userRoutes.GET("/", userHandler.GetUsers)
			userRoutes.POST("/", userHandler.CreateUser)
			userRoutes.GET("/:id", userHandler.GetUserByID)
			userRoutes.PUT("/:id", userHandler.UpdateUser)
			userRoutes.DELETE("/:id", userHandler.DeleteUser)
		}

		catalogRoutes := private.Group("/bases/:catalog")
		{
			catalogRoutes.GET("/", catalogHandler.List)
			catalogRoutes.GET("/search", catalogHandler.Search)
			catalogRoutes.POST("/", catalogHandler.Create)
			catalogRoutes.PUT("/:id", catalogHandler.Update)
			catalogRoutes.DELETE("/:id", catalogHandler.Delete)
		}

		private.GET("/sexo", patientHandler.ListSexes)
		private.GET("/tipos_cirugia", patientHandler.ListSurgeryTypes)

		patientRoutes := private.Group("/pacientes")
		{
			patientRoutes.GET("/", patientHandler.ListPatients)
			patientRoutes.POST("/", patientHandler.CreatePatient)
			patientRoutes.GET("/:id", patientHandler.GetPatient)
			patientRoutes.PUT("/:id", patientHandler.UpdatePatient)
			patientRoutes.DELETE("/:id", patientHandler.DeletePatient)
			patientRoutes.POST("/:id/restaurar", patientHandler.RestorePatient)
		}

		private.GET("/antecedentes/:patientId", patientHandler.GetHistory)
		private.PUT("/antecedentes/:patientId", patientHandler.UpsertHistory)

		appointmentRoutes := private.Group("/turnos")
		{
			appointmentRoutes.GET("/", appointmentHandler.ListAppointments)
			appointmentRoutes.POST("/", appointmentHandler.CreateAppointment)
			appointmentRoutes.PUT("/:id", appointmentHandler.UpdateAppointment)
			appointmentRoutes.DELETE("/:id", appointmentHandler.DeleteAppointment)
		}

		consultationRoutes := private.Group("/consultas")
		{
			consultationRoutes.POST("/", consultationHandler.CreateConsultation)
			consultationRoutes.GET("/paciente/:patientId", consultationHandler.ListPatientConsultations)
			consultationRoutes.PUT("/:id", consultationHandler.UpdateConsultation)
			consultationRoutes.DELETE("/:id", consultationHandler.DeleteConsultation)
		}

		evolutionRoutes := private.Group("/evoluciones")
		{
			evolutionRoutes.POST("/", consultationHandler.CreateEvolution)
			evolutionRoutes.GET("/consulta/:consultationId", consultationHandler.ListEvolutions)
			evolutionRoutes.PUT("/:id", consultationHandler.UpdateEvolution)
			evolutionRoutes.DELETE("/:id", consultationHandler.DeleteEvolution)
		}

		studyRoutes := private.Group("/examenes/:kind")
		{
			studyRoutes.POST("", medicalRecordHandler.CreateStudy)
			studyRoutes.GET("/paciente/:patientId", medicalRecordHandler.ListPatientStudies)
			studyRoutes.GET("/item/:id", medicalRecordHandler.GetStudy)
			studyRoutes.PUT("/:id", medicalRecordHandler.UpdateStudy)
			studyRoutes.DELETE("/:id", medicalRecordHandler.DeleteStudy)
		}

		interconsultationRoutes := private.Group("/interconsultas")
		{
			interconsultationRoutes.POST("/", medicalRecordHandler.CreateInterconsultation)
			interconsultationRoutes.GET("/paciente/:patientId", medicalRecordHandler.ListPatientInterconsultations)
			interconsultationRoutes.GET("/:id/archivo-url", medicalRecordHandler.InterconsultationFileURL)
			interconsultationRoutes.PUT("/:id", medicalRecordHandler.UpdateInterconsultation)
			interconsultationRoutes.DELETE("/:id", medicalRecordHandler.DeleteInterconsultation)
		}

		procedureRoutes := private.Group("/procedimientos")
		{
			procedureRoutes.POST("/pacientes", procedureHandler.CreateProcedure)
			procedureRoutes.GET("/pacientes/:patientId", procedureHandler.ListPatientProcedures)
			procedureRoutes.GET("/:id", procedureHandler.GetProcedure)
			procedureRoutes.PUT("/:id", procedureHandler.UpdateProcedure)
			procedureRoutes.DELETE("/:id", procedureHandler.DeleteProcedure)
			procedureRoutes.GET("/:id/codigos", procedureHandler.ListBillingCodes)
			procedureRoutes.PUT("/:id/codigos", procedureHandler.ReplaceBillingCodes)
			procedureRoutes.GET("/:id/fotos", procedureHandler.ListPhotos)
			procedureRoutes.POST("/:id/fotos", procedureHandler.UploadPhotos)
			procedureRoutes.DELETE("/:id/fotos", procedureHandler.DeleteAllPhotos)
			procedureRoutes.DELETE("/:id/fotos/:photoId", procedureHandler.DeletePhoto)
		}

		reportRoutes := private.Group("/partes")
		{
			reportRoutes.POST("/", reportHandler.CreateSurgicalReport)
			reportRoutes.GET("/resumen", reportHandler.ListSummaries)
			reportRoutes.GET("/:procedureId", reportHandler.GetSurgicalReport)
			reportRoutes.PUT("/:procedureId", reportHandler.UpdateSurgicalReport)
			reportRoutes.DELETE("/:procedureId", reportHandler.DeleteSurgicalReport)
		}

		templateRoutes := private.Group("/plantillas")
		{
			templateRoutes.GET("/", reportHandler.ListTemplates)
			templateRoutes.POST("/", reportHandler.CreateTemplate)
			templateRoutes.PUT("/:id", reportHandler.UpdateTemplate)
			templateRoutes.DELETE("/:id", reportHandler.DeleteTemplate)
		}

		pathologyRoutes := private.Group("/patologias")
		{
			pathologyRoutes.POST("/", pathologyHandler.CreatePathology)
			pathologyRoutes.GET("/paciente/:patientId", pathologyHandler.ListPatientPathologies)
			pathologyRoutes.GET("/item/:id", pathologyHandler.GetPathology)
			pathologyRoutes.PUT("/:id", pathologyHandler.UpdatePathology)
			pathologyRoutes.DELETE("/:id", pathologyHandler.DeletePathology)
			pathologyRoutes.POST("/:id/pdf", pathologyHandler.UploadReportPDF)
			pathologyRoutes.DELETE("/:id/pdf", pathologyHandler.DeleteReportPDF)
			pathologyRoutes.GET("/:id/fotos", pathologyHandler.ListPhotos)
			pathologyRoutes.POST("/:id/fotos", pathologyHandler.UploadPhotos)
		}

		pdfRoutes := private.Group("/pdf")
		{
			pdfRoutes.GET("/parte/:procedureId", pdfHandler.SurgicalReportJSON)
			pdfRoutes.GET("/parte/:procedureId/pdf", pdfHandler.SurgicalReportPDF)
			pdfRoutes.GET("/resumen-hc/:patientId", pdfHandler.ClinicalSummaryPDF)
		}
	}
}
