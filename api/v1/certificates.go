package v1

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"certscribe/event-portal/event-portal-backend/internal/certificates"
	"certscribe/event-portal/event-portal-backend/internal/config"
	"certscribe/event-portal/event-portal-backend/internal/notifications"
	ws "certscribe/event-portal/event-portal-backend/internal/notifications/websocket"
	"certscribe/event-portal/event-portal-backend/internal/render"
	"certscribe/event-portal/event-portal-backend/internal/session"
	"certscribe/event-portal/event-portal-backend/pkg/storage"
)

// CertificatesAPI holds the certificates API dependencies
type CertificatesAPI struct {
	Handler *certificates.Handler
	Service *certificates.Service
	Store   *session.Store
	Hub     *ws.Hub
}

// SetupCertificatesAPI sets up the certificates API with all dependencies
func SetupCertificatesAPI(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*CertificatesAPI, error) {
	renderer := render.NewRenderer(render.Options{
		DefaultEventLabel: cfg.Render.DefaultEventLabel,
		DateFormat:        cfg.Render.DateFormat,
		FontFamily:        cfg.Render.FontFamily,
		Compress:          true,
	})

	store := session.NewStore(cfg.Render.DefaultEventLabel, cfg.Session.BatchRetention, logger)
	if err := store.StartJanitor(); err != nil {
		return nil, fmt.Errorf("failed to start session janitor: %w", err)
	}

	hub := ws.NewHub(logger)

	mailer, err := buildMailer(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	opts := []certificates.Option{
		certificates.WithProgress(hub),
		certificates.WithWorkers(cfg.Session.BatchWorkers),
	}

	if cfg.AWS.S3Bucket != "" {
		archiver, err := storage.NewS3Archiver(ctx, storage.Config{
			Region:    cfg.AWS.Region,
			Bucket:    cfg.AWS.S3Bucket,
			AccessKey: cfg.AWS.AccessKey,
			SecretKey: cfg.AWS.SecretKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create archiver: %w", err)
		}
		opts = append(opts, certificates.WithArchiver(archiver))
	}

	if cfg.AWS.SNSTopicARN != "" {
		awsCfg, err := loadAWSConfig(ctx, cfg.AWS)
		if err != nil {
			return nil, err
		}
		announcer := notifications.NewAnnouncer(sns.NewFromConfig(awsCfg), cfg.AWS.SNSTopicARN, logger)
		opts = append(opts, certificates.WithAnnouncer(announcer))
	}

	service := certificates.NewService(renderer, store, mailer, logger, opts...)
	handler := certificates.NewHandler(service, store, hub, logger)

	return &CertificatesAPI{
		Handler: handler,
		Service: service,
		Store:   store,
		Hub:     hub,
	}, nil
}

// RegisterCertificatesRoutes registers the certificates routes on the router group
func RegisterCertificatesRoutes(router *gin.RouterGroup, api *CertificatesAPI) {
	api.Handler.RegisterRoutes(router)
}

// Close releases background resources held by the API.
func (a *CertificatesAPI) Close() {
	a.Store.StopJanitor()
	a.Hub.Close()
}

// buildMailer selects the delivery backend from configuration. A missing
// provider disables email; downloads and previews still work.
func buildMailer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (notifications.Mailer, error) {
	switch cfg.Email.Provider {
	case "smtp":
		return notifications.NewSMTPMailer(notifications.SMTPConfig{
			Host:        cfg.Email.SMTPHost,
			Port:        cfg.Email.SMTPPort,
			Username:    cfg.Email.SMTPUsername,
			Password:    cfg.Email.SMTPPassword,
			FromAddress: cfg.Email.FromAddress,
			FromName:    cfg.Email.FromName,
		}, logger), nil

	case "ses":
		awsCfg, err := loadAWSConfig(ctx, cfg.AWS)
		if err != nil {
			return nil, err
		}
		return notifications.NewSESMailer(sesv2.NewFromConfig(awsCfg), cfg.Email.FromName, cfg.Email.FromAddress, logger), nil

	case "":
		logger.Warn("Email provider not configured, bulk email disabled")
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown email provider: %s", cfg.Email.Provider)
	}
}

func loadAWSConfig(ctx context.Context, cfg config.AWSConfig) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	return awsconfig.LoadDefaultConfig(ctx, opts...)
}
