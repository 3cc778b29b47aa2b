package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"sitework/internal/domain"
	"sitework/internal/models"
	"sitework/pkg/blobstore"
	"sitework/pkg/mailer"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.BackupCode{},
		&models.Project{},
		&models.ProjectMembership{},
		&models.CostEntry{},
		&models.PartnerInvitation{},
		&models.ProjectDocument{},
		&models.QueuedNotification{},
		&models.NotificationPreference{},
		&models.EmailLogEntry{},
		&models.ReportArtifact{},
		&models.AuditLog{},
	))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, name, email string) *models.User {
	t.Helper()
	u := &models.User{Name: name, Email: email, Role: domain.RoleMember}
	require.NoError(t, db.Create(u).Error)
	return u
}

func seedProject(t *testing.T, db *gorm.DB, name string, ownerID uint) *models.Project {
	t.Helper()
	p := &models.Project{Name: name, Status: domain.ProjectStatusPlanning, CreatedByID: ownerID}
	require.NoError(t, db.Create(p).Error)
	require.NoError(t, db.Create(&models.ProjectMembership{ProjectID: p.ID, UserID: ownerID, Role: domain.ProjectRoleOwner}).Error)
	return p
}

// fakeSender records outgoing mail; addresses in failTo are rejected.
type fakeSender struct {
	mu     sync.Mutex
	sent   []mailer.Message
	failTo map[string]bool
	n      int
}

func (f *fakeSender) Send(_ context.Context, msg mailer.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failTo[msg.To] {
		return "", errors.New("provider rejected message")
	}
	f.n++
	f.sent = append(f.sent, msg)
	return fmt.Sprintf("msg_%d", f.n), nil
}

func (f *fakeSender) messages() []mailer.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]mailer.Message, len(f.sent))
	copy(out, f.sent)
	return out
}

type fakeObject struct {
	data        []byte
	contentType string
	metadata    map[string]string
	modified    time.Time
}

// fakeStore is an in-memory blobstore.Store with injectable per-key errors.
type fakeStore struct {
	mu        sync.Mutex
	objects   map[string]fakeObject
	statErr   map[string]error
	deleteErr map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		objects:   make(map[string]fakeObject),
		statErr:   make(map[string]error),
		deleteErr: make(map[string]error),
	}
}

func (f *fakeStore) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string, metadata map[string]string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	md := make(map[string]string, len(metadata))
	for k, v := range metadata {
		md[k] = v
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = fakeObject{data: data, contentType: contentType, metadata: md, modified: time.Now()}
	return nil
}

func (f *fakeStore) Get(_ context.Context, key string) (io.ReadCloser, blobstore.ObjectInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[key]
	if !ok {
		return nil, blobstore.ObjectInfo{}, blobstore.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.data)), f.infoLocked(key, obj), nil
}

func (f *fakeStore) Stat(_ context.Context, key string) (blobstore.ObjectInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.statErr[key]; err != nil {
		return blobstore.ObjectInfo{}, err
	}
	obj, ok := f.objects[key]
	if !ok {
		return blobstore.ObjectInfo{}, blobstore.ErrNotFound
	}
	return f.infoLocked(key, obj), nil
}

func (f *fakeStore) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.deleteErr[key]; err != nil {
		return err
	}
	delete(f.objects, key)
	return nil
}

func (f *fakeStore) List(_ context.Context, prefix string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (f *fakeStore) infoLocked(key string, obj fakeObject) blobstore.ObjectInfo {
	return blobstore.ObjectInfo{
		Key:          key,
		Size:         int64(len(obj.data)),
		ContentType:  obj.contentType,
		Metadata:     obj.metadata,
		LastModified: obj.modified,
	}
}

func (f *fakeStore) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok
}

func (f *fakeStore) putRaw(key string, data []byte, metadata map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = fakeObject{data: data, metadata: metadata, modified: time.Now()}
}
