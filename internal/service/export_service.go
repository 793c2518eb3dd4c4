package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-gatepass-api/internal/dto"
	"github.com/noah-isme/sma-gatepass-api/internal/models"
	appErrors "github.com/noah-isme/sma-gatepass-api/pkg/errors"
	"github.com/noah-isme/sma-gatepass-api/pkg/export"
	"github.com/noah-isme/sma-gatepass-api/pkg/storage"
)

type registerProvider interface {
	List(ctx context.Context, query dto.GatePassQuery, actor *models.JWTClaims) (*dto.GatePassListResponse, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.GatePassDetail, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

type slipRenderer interface {
	Render(heading, subheading string, fields []export.SlipField) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	ResultTTL  time.Duration
	SchoolName string
}

// ExportService renders the gate pass register to downloadable files and
// single passes to printable slips.
type ExportService struct {
	register registerProvider
	storage  fileStorage
	csv      csvRenderer
	pdf      pdfRenderer
	slip     slipRenderer
	signer   *storage.SignedURLSigner
	logger   *zap.Logger
	cfg      ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(register registerProvider, store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportService{
		register: register,
		storage:  store,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		slip:     export.NewSlipExporter(),
		signer:   signer,
		logger:   logger,
		cfg:      cfg,
	}
}

var registerHeaders = []string{
	"Pass No", "Type", "Person", "Phone", "Class", "Reason", "Destination",
	"Status", "Issued At", "Out At", "In At", "Cancelled At",
}

// Register renders the filtered register as CSV or PDF, stores the artifact
// and returns a signed download token.
func (s *ExportService) Register(ctx context.Context, query dto.GatePassQuery, format string, actor *models.JWTClaims) (*dto.ExportArtifact, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format != "csv" && format != "pdf" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	// Export the whole filtered set, not just the first page.
	query.Limit = 200
	query.Offset = 0

	listing, err := s.register.List(ctx, query, actor)
	if err != nil {
		return nil, err
	}

	dataset := export.Dataset{Headers: registerHeaders, Rows: make([]map[string]string, 0, len(listing.Items))}
	for _, item := range listing.Items {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Pass No":      item.PassNo,
			"Type":         string(item.Type),
			"Person":       item.PersonName,
			"Phone":        derefString(item.PersonPhone),
			"Class":        derefString(item.ClassName),
			"Reason":       item.Reason,
			"Destination":  derefString(item.Destination),
			"Status":       string(item.Status),
			"Issued At":    item.IssuedAt.UTC().Format(time.RFC3339),
			"Out At":       formatOptionalTime(item.OutAt),
			"In At":        formatOptionalTime(item.InAt),
			"Cancelled At": formatOptionalTime(item.CancelledAt),
		})
	}

	var payload []byte
	switch format {
	case "csv":
		payload, err = s.csv.Render(dataset)
	case "pdf":
		payload, err = s.pdf.Render(dataset, "Gate Pass Register")
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	exportID := uuid.NewString()
	filename := fmt.Sprintf("gate_pass_register_%s.%s", time.Now().UTC().Format("20060102_150405"), format)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}

	token, expiresAt, err := s.signer.Generate(exportID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export")
	}

	return &dto.ExportArtifact{
		ExportID:  exportID,
		FileName:  filename,
		Format:    format,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// Slip renders a printable slip for a single pass. The bytes are returned
// directly for inline download, nothing is stored.
func (s *ExportService) Slip(ctx context.Context, passID string, actor *models.JWTClaims) ([]byte, string, error) {
	detail, err := s.register.Get(ctx, passID, actor)
	if err != nil {
		return nil, "", err
	}

	subheading := s.cfg.SchoolName
	if subheading == "" {
		subheading = "Gate Pass"
	}

	fields := []export.SlipField{
		{Label: "Type", Value: string(detail.Type)},
		{Label: "Name", Value: detail.PersonName},
	}
	if detail.ClassName != nil {
		fields = append(fields, export.SlipField{Label: "Class", Value: *detail.ClassName})
	}
	if detail.PersonPhone != nil {
		fields = append(fields, export.SlipField{Label: "Phone", Value: *detail.PersonPhone})
	}
	fields = append(fields, export.SlipField{Label: "Reason", Value: detail.Reason})
	if detail.Destination != nil {
		fields = append(fields, export.SlipField{Label: "Destination", Value: *detail.Destination})
	}
	fields = append(fields,
		export.SlipField{Label: "Status", Value: string(detail.Status)},
		export.SlipField{Label: "Issued", Value: detail.IssuedAt.UTC().Format("2006-01-02 15:04")},
	)
	if detail.OutAt != nil {
		fields = append(fields, export.SlipField{Label: "Out", Value: detail.OutAt.UTC().Format("2006-01-02 15:04")})
	}
	if detail.InAt != nil {
		fields = append(fields, export.SlipField{Label: "In", Value: detail.InAt.UTC().Format("2006-01-02 15:04")})
	}

	payload, err := s.slip.Render(detail.PassNo, subheading, fields)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render slip")
	}
	filename := fmt.Sprintf("%s.pdf", strings.ReplaceAll(detail.PassNo, "/", "-"))
	return payload, filename, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (exportID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func derefString(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
