package routes

import (
	"github.com/delloop-lab/accreditor-sub000/internal/config"
	"github.com/delloop-lab/accreditor-sub000/internal/handlers"
	"github.com/delloop-lab/accreditor-sub000/internal/middleware"
	"github.com/delloop-lab/accreditor-sub000/internal/repository"
	"github.com/delloop-lab/accreditor-sub000/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func RegisterRoutes(app *fiber.App, cfg *config.Config, db *pgxpool.Pool, cache *redis.Client) error {
	profileRepo := repository.NewProfileRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	clientRepo := repository.NewClientRepository(db)
	documentRepo := repository.NewClientDocumentRepository(db)
	cpdRepo := repository.NewCPDRepository(db)
	mentoringRepo := repository.NewMentoringRepository(db)
	pushRepo := repository.NewPushSubscriptionRepository(db)
	scheduledRepo := repository.NewScheduledEmailRepository(db)

	var storageService services.StorageService
	if cfg.StorageEnabled() {
		storageService = services.NewSupabaseStorageService(cfg.SupabaseURL, cfg.SupabaseBucket, cfg.SupabaseServiceKey)
	}
	var emailSender services.EmailSender
	if cfg.EmailEnabled() {
		emailSender = services.NewHTTPEmailSender(cfg.EmailAPIURL, cfg.EmailAPIKey, cfg.EmailFrom)
	}
	var pushSender services.PushSender
	vapidPublicKey := ""
	if cfg.PushEnabled() {
		pushSender = services.NewWebPushSender(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.VAPIDSubject)
		vapidPublicKey = cfg.VAPIDPublicKey
	}

	profileService := services.NewProfileService(profileRepo)
	presenceService := services.NewPresenceService(profileRepo, cache)
	entitlementService := services.NewEntitlementService(sessionRepo, cpdRepo, cfg.FreePlanEntryLimit)
	calendlyService := services.NewCalendlyService(cfg.CalendlyAPIURL, cfg.CalendlyToken)
	sessionService := services.NewSessionService(db, sessionRepo, clientRepo, entitlementService, calendlyService)
	importService := services.NewImportService(db, entitlementService, cfg.ImportMaxRows)
	exportService := services.NewExportService(sessionRepo, clientRepo)
	clientService := services.NewClientService(clientRepo, documentRepo, storageService)
	cpdService := services.NewCPDService(cpdRepo, entitlementService, storageService)
	mentoringService := services.NewMentoringService(mentoringRepo, storageService)
	progressService := services.NewProgressService(sessionRepo, cpdRepo)
	notificationService := services.NewNotificationService(profileRepo, pushRepo, emailSender, pushSender, vapidPublicKey)
	adminService := services.NewAdminService(profileRepo, scheduledRepo, sessionRepo, cpdRepo, presenceService, emailSender)

	importHandler := handlers.NewImportHandler(importService, cfg.ImportMaxBytes())
	sessionHandler := handlers.NewSessionHandler(sessionService, exportService)
	clientHandler := handlers.NewClientHandler(clientService)
	cpdHandler := handlers.NewCPDHandler(cpdService)
	mentoringHandler := handlers.NewMentoringHandler(mentoringService)
	profileHandler := handlers.NewProfileHandler(profileService, entitlementService, progressService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	calendlyHandler := handlers.NewCalendlyHandler(calendlyService)
	adminHandler := handlers.NewAdminHandler(adminService)

	if err := registerDocsRoutes(app, cfg); err != nil {
		return err
	}

	authChain := []fiber.Handler{
		middleware.AuthRequired(cfg.JWTSecret),
		middleware.LoadOwner(profileService),
		middleware.Presence(presenceService),
	}

	api := app.Group("/api")

	api.Post("/internal/process-scheduled-emails",
		middleware.SchedulerTokenRequired(cfg.SchedulerToken),
		adminHandler.ProcessScheduledEmails,
	)

	v1 := api.Group("/v1", authChain...)

	sessions := v1.Group("/sessions")
	sessions.Post("/import", importHandler.ImportSessions)
	sessions.Get("/export", sessionHandler.ExportICFLog)
	sessions.Post("/bulk-delete", sessionHandler.BulkDelete)
	sessions.Get("", sessionHandler.ListSessions)
	sessions.Post("", sessionHandler.CreateSession)
	sessions.Get("/:id", sessionHandler.GetSession)
	sessions.Put("/:id", sessionHandler.UpdateSession)
	sessions.Delete("/:id", sessionHandler.DeleteSession)

	clients := v1.Group("/clients")
	clients.Get("", clientHandler.ListClients)
	clients.Post("", clientHandler.CreateClient)
	clients.Get("/:id", clientHandler.GetClient)
	clients.Put("/:id", clientHandler.UpdateClient)
	clients.Delete("/:id", clientHandler.DeleteClient)
	clients.Get("/:id/documents", clientHandler.ListDocuments)
	clients.Post("/:id/documents", clientHandler.UploadDocument)

	documents := v1.Group("/documents")
	documents.Get("/:docId/url", clientHandler.DocumentURL)
	documents.Delete("/:docId", clientHandler.DeleteDocument)

	cpd := v1.Group("/cpd")
	cpd.Get("", cpdHandler.ListEntries)
	cpd.Post("", cpdHandler.CreateEntry)
	cpd.Get("/summary", cpdHandler.Summary)
	cpd.Get("/:id", cpdHandler.GetEntry)
	cpd.Put("/:id", cpdHandler.UpdateEntry)
	cpd.Delete("/:id", cpdHandler.DeleteEntry)

	mentoring := v1.Group("/mentoring")
	mentoring.Get("", mentoringHandler.ListSessions)
	mentoring.Post("", mentoringHandler.CreateSession)
	mentoring.Get("/:id", mentoringHandler.GetSession)
	mentoring.Put("/:id", mentoringHandler.UpdateSession)
	mentoring.Delete("/:id", mentoringHandler.DeleteSession)

	v1.Get("/profile", profileHandler.GetProfile)
	v1.Put("/profile", profileHandler.UpdateProfile)
	v1.Get("/usage", profileHandler.GetUsage)
	v1.Get("/progress", profileHandler.GetProgress)

	notifications := api.Group("/notifications", authChain...)
	notifications.Get("/preferences", notificationHandler.GetPreferences)
	notifications.Put("/preferences/email", notificationHandler.UpdateEmailPreferences)
	notifications.Put("/preferences/push", notificationHandler.UpdatePushPreferences)
	notifications.Post("/send-email", notificationHandler.SendEmail)

	push := api.Group("/push", authChain...)
	push.Get("/vapid-public-key", notificationHandler.VAPIDPublicKey)
	push.Post("/subscribe", notificationHandler.Subscribe)
	push.Delete("/subscribe", notificationHandler.Unsubscribe)
	push.Post("/send", notificationHandler.SendPush)

	api.Get("/calendly/events", append(authChain, calendlyHandler.ListEvents)...)

	adminLimit := middleware.AdminRateLimit(cfg.AdminRateLimitPerMin)
	admin := api.Group("/admin", append(authChain, middleware.AdminRequired())...)
	admin.Get("/dashboard", adminHandler.Dashboard)
	admin.Get("/users", adminHandler.ListUsers)
	admin.Put("/users/:id/subscription", adminLimit, adminHandler.UpdateSubscription)
	admin.Put("/users/:id/role", adminLimit, adminHandler.UpdateRole)
	admin.Get("/users/:id/report", adminHandler.UserReport)
	admin.Post("/send-reminders", adminLimit, adminHandler.SendReminders)
	admin.Post("/send-custom-reminders", adminLimit, adminHandler.SendCustomReminders)
	admin.Post("/schedule-email", adminLimit, adminHandler.ScheduleEmail)
	admin.Get("/scheduled-emails", adminHandler.ListScheduledEmails)
	admin.Delete("/scheduled-emails/:id", adminLimit, adminHandler.DeleteScheduledEmail)
	admin.Post("/process-scheduled-emails", adminLimit, adminHandler.ProcessScheduledEmails)

	return nil
}
