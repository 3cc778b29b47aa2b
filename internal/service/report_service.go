package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"time"

	"sitework/internal/domain"
	"sitework/internal/models"
	"sitework/internal/repository"
	"sitework/pkg/blobstore"

	"github.com/google/uuid"
)

var (
	ErrInvalidFormat  = errors.New("format must be csv or json")
	ErrReportExpired  = errors.New("report has expired")
	ErrReportNotFound = errors.New("report not found")
)

const reportKeyPrefix = "reports/"

// metadata key carrying the artifact's expiry timestamp (RFC 3339)
const metaExpiresAt = "expires-at"

// ReapResult summarizes one expiry sweep over the reports bucket.
type ReapResult struct {
	Scanned     int      `json:"scanned"`
	Deleted     int      `json:"deleted"`
	DeletedKeys []string `json:"deleted_keys,omitempty"`
	Errors      []string `json:"errors,omitempty"`
}

// ReportService generates project cost reports into blob storage with a
// fixed TTL, and reaps expired artifacts. Expiry is enforced twice: a sweep
// (scheduled plus opportunistic on generation) and an authoritative per-key
// check at download time.
type ReportService struct {
	reportRepo  *repository.ReportRepository
	costRepo    *repository.CostRepository
	projectRepo *repository.ProjectRepository
	store       blobstore.Store
	ttl         time.Duration
}

func NewReportService(
	reportRepo *repository.ReportRepository,
	costRepo *repository.CostRepository,
	projectRepo *repository.ProjectRepository,
	store blobstore.Store,
	ttl time.Duration,
) *ReportService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &ReportService{
		reportRepo:  reportRepo,
		costRepo:    costRepo,
		projectRepo: projectRepo,
		store:       store,
		ttl:         ttl,
	}
}

// Generate renders a cost report for the project, stores it with expiry
// metadata, and records the artifact. Each generation also triggers a
// best-effort sweep of already-expired artifacts.
func (s *ReportService) Generate(ctx context.Context, userID, projectID uint, format string) (*models.ReportArtifact, error) {
	if format != domain.ReportFormatCSV && format != domain.ReportFormatJSON {
		return nil, ErrInvalidFormat
	}

	// Opportunistic cleanup; a new report request is the one moment we know
	// the store is in use. Failures only get logged.
	if res, err := s.CleanupExpiredReports(ctx); err != nil {
		log.Printf("[reports] opportunistic sweep failed: %v", err)
	} else if res.Deleted > 0 || len(res.Errors) > 0 {
		log.Printf("[reports] opportunistic sweep: scanned=%d deleted=%d errors=%d", res.Scanned, res.Deleted, len(res.Errors))
	}

	project, err := s.projectRepo.GetByID(projectID)
	if err != nil {
		return nil, err
	}
	entries, err := s.costRepo.ListByProjectID(projectID)
	if err != nil {
		return nil, err
	}
	totals, err := s.costRepo.TotalsByCategory(projectID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var body []byte
	var contentType string
	switch format {
	case domain.ReportFormatCSV:
		body, err = renderCSV(project, entries, totals)
		contentType = "text/csv"
	case domain.ReportFormatJSON:
		body, err = renderJSON(project, entries, totals, now)
		contentType = "application/json"
	}
	if err != nil {
		return nil, err
	}

	uid := uuid.NewString()
	fileName := fmt.Sprintf("%s-costs-%s.%s", slugify(project.Name), now.Format("2006-01-02"), format)
	key := objectKey(uid, fileName)
	expiresAt := now.Add(s.ttl)
	metadata := map[string]string{
		metaExpiresAt: expiresAt.UTC().Format(time.RFC3339),
		"report-uid":  uid,
		"project-id":  strconv.FormatUint(uint64(projectID), 10),
	}
	if err := s.store.Put(ctx, key, bytes.NewReader(body), int64(len(body)), contentType, metadata); err != nil {
		return nil, fmt.Errorf("store report: %w", err)
	}

	artifact := &models.ReportArtifact{
		UID:         uid,
		UserID:      userID,
		ProjectID:   projectID,
		Format:      format,
		ObjectKey:   key,
		FileName:    fileName,
		GeneratedAt: now,
		ExpiresAt:   expiresAt,
	}
	if err := s.reportRepo.Create(artifact); err != nil {
		// Roll back the blob so no orphan outlives its bookkeeping row.
		_ = s.store.Delete(ctx, key)
		return nil, err
	}
	return artifact, nil
}

// IsReportExpired is the access-time guard: it returns true when the blob's
// metadata is missing, carries no expiry, or the expiry is in the past.
// Only a well-formed future expiry returns false.
func (s *ReportService) IsReportExpired(ctx context.Context, reportUID, fileName string) (bool, error) {
	return s.expiredByKey(ctx, objectKey(reportUID, fileName))
}

func (s *ReportService) expiredByKey(ctx context.Context, key string) (bool, error) {
	info, err := s.store.Stat(ctx, key)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return true, nil
		}
		// Store unreachable is not the same as expired; report the error
		// rather than serving or deleting anything.
		return false, err
	}
	raw, ok := metaValue(info.Metadata, metaExpiresAt)
	if !ok {
		return true, nil
	}
	expiresAt, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return true, nil
	}
	return time.Now().After(expiresAt), nil
}

// Download streams the artifact after the expiry guard. Expired artifacts
// are deleted on access and reported as expired, so a caller can never
// receive stale data even if no sweep has run yet.
func (s *ReportService) Download(ctx context.Context, artifact *models.ReportArtifact) (io.ReadCloser, blobstore.ObjectInfo, error) {
	expired, err := s.IsReportExpired(ctx, artifact.UID, artifact.FileName)
	if err != nil {
		return nil, blobstore.ObjectInfo{}, err
	}
	if expired {
		_ = s.store.Delete(ctx, artifact.ObjectKey)
		_ = s.reportRepo.DeleteByID(artifact.ID)
		return nil, blobstore.ObjectInfo{}, ErrReportExpired
	}
	rc, info, err := s.store.Get(ctx, artifact.ObjectKey)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, blobstore.ObjectInfo{}, ErrReportNotFound
		}
		return nil, blobstore.ObjectInfo{}, err
	}
	return rc, info, nil
}

// CleanupExpiredReports scans every stored artifact and deletes those whose
// expiry has passed. Keys with missing or malformed metadata are skipped
// with a warning, never deleted. One key's delete failure is recorded and
// the scan continues.
func (s *ReportService) CleanupExpiredReports(ctx context.Context) (*ReapResult, error) {
	keys, err := s.store.List(ctx, reportKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	result := &ReapResult{Scanned: len(keys)}
	now := time.Now()
	for _, key := range keys {
		info, err := s.store.Stat(ctx, key)
		if err != nil {
			if errors.Is(err, blobstore.ErrNotFound) {
				continue // deleted under us; nothing to do
			}
			result.Errors = append(result.Errors, fmt.Sprintf("%s: stat: %v", key, err))
			continue
		}
		raw, ok := metaValue(info.Metadata, metaExpiresAt)
		if !ok {
			log.Printf("[reports] %s has no expiry metadata, skipping", key)
			continue
		}
		expiresAt, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			log.Printf("[reports] %s has malformed expiry %q, skipping", key, raw)
			continue
		}
		if !now.After(expiresAt) {
			continue
		}
		if err := s.store.Delete(ctx, key); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: delete: %v", key, err))
			continue
		}
		_ = s.reportRepo.DeleteByObjectKey(key)
		result.Deleted++
		result.DeletedKeys = append(result.DeletedKeys, key)
	}
	return result, nil
}

func objectKey(reportUID, fileName string) string {
	return reportKeyPrefix + reportUID + "/" + fileName
}

// metaValue looks a metadata key up case-insensitively; S3-style stores
// canonicalize user metadata keys.
func metaValue(metadata map[string]string, key string) (string, bool) {
	if v, ok := metadata[key]; ok {
		return v, true
	}
	for k, v := range metadata {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return "", false
}

func slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('-')
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "project"
	}
	return out
}

func renderCSV(project *models.Project, entries []models.CostEntry, totals []repository.CategoryTotal) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"project", "date", "category", "description", "amount"})
	for _, e := range entries {
		_ = w.Write([]string{
			project.Name,
			e.IncurredOn.Format("2006-01-02"),
			e.Category,
			e.Description,
			fmt.Sprintf("%.2f", float64(e.AmountCents)/100),
		})
	}
	_ = w.Write([]string{})
	_ = w.Write([]string{"category totals"})
	for _, t := range totals {
		_ = w.Write([]string{"", "", t.Category, fmt.Sprintf("%d entries", t.Entries), fmt.Sprintf("%.2f", float64(t.AmountCents)/100)})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type jsonReport struct {
	Project     string                     `json:"project"`
	Status      string                     `json:"status"`
	GeneratedAt time.Time                  `json:"generated_at"`
	BudgetCents int64                      `json:"budget_cents"`
	TotalCents  int64                      `json:"total_cents"`
	ByCategory  []repository.CategoryTotal `json:"by_category"`
	Entries     []models.CostEntry         `json:"entries"`
}

func renderJSON(project *models.Project, entries []models.CostEntry, totals []repository.CategoryTotal, now time.Time) ([]byte, error) {
	var total int64
	for _, t := range totals {
		total += t.AmountCents
	}
	return json.MarshalIndent(jsonReport{
		Project:     project.Name,
		Status:      project.Status,
		GeneratedAt: now,
		BudgetCents: project.BudgetCents,
		TotalCents:  total,
		ByCategory:  totals,
		Entries:     entries,
	}, "", "  ")
}
