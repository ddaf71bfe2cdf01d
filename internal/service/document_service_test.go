package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/formagestpro/formagest-api/internal/models"
	appErrors "github.com/formagestpro/formagest-api/pkg/errors"
	"github.com/formagestpro/formagest-api/pkg/storage"
)

type mockDocumentRepo struct {
	docs    map[string]*models.Document
	deleted string
}

func (m *mockDocumentRepo) Create(ctx context.Context, doc *models.Document) error {
	if m.docs == nil {
		m.docs = make(map[string]*models.Document)
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	m.docs[doc.ID] = doc
	return nil
}

func (m *mockDocumentRepo) FindByID(ctx context.Context, id string) (*models.Document, error) {
	doc, ok := m.docs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return doc, nil
}

func (m *mockDocumentRepo) ListByTransaction(ctx context.Context, transactionID string) ([]models.Document, error) {
	var out []models.Document
	for _, doc := range m.docs {
		if doc.TransaccionID == transactionID {
			out = append(out, *doc)
		}
	}
	return out, nil
}

func (m *mockDocumentRepo) Delete(ctx context.Context, id string) error {
	m.deleted = id
	delete(m.docs, id)
	return nil
}

type mockDocumentTransactionRepo struct {
	exists bool
}

func (m *mockDocumentTransactionRepo) FindByID(ctx context.Context, id string) (*models.TransactionWithDetails, error) {
	if !m.exists {
		return nil, sql.ErrNoRows
	}
	transaction := &models.TransactionWithDetails{}
	transaction.ID = id
	return transaction, nil
}

func newDocumentServiceForTest(t *testing.T, repo *mockDocumentRepo, transactions *mockDocumentTransactionRepo) *DocumentService {
	t.Helper()
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", 30*time.Minute)
	return NewDocumentService(repo, transactions, files, signer, 1024, []string{"pdf", "jpg"}, zap.NewNop())
}

func TestDocumentUploadStoresFileAndMetadata(t *testing.T) {
	repo := &mockDocumentRepo{}
	svc := newDocumentServiceForTest(t, repo, &mockDocumentTransactionRepo{exists: true})

	doc, err := svc.Upload(context.Background(), UploadDocumentRequest{
		TransaccionID: "t1",
		TipoDocumento: "COMPROBANTE_TRANSFERENCIA",
		Filename:      "voucher banco.pdf",
		Data:          []byte("%PDF-1.4 test"),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "voucher banco.pdf", doc.NombreOriginal)
	assert.Equal(t, "pdf", doc.Extension)
	assert.NotEqual(t, doc.NombreOriginal, doc.NombreArchivo)
	assert.Len(t, repo.docs, 1)
}

func TestDocumentUploadRejectsOversizedFile(t *testing.T) {
	svc := newDocumentServiceForTest(t, &mockDocumentRepo{}, &mockDocumentTransactionRepo{exists: true})

	_, err := svc.Upload(context.Background(), UploadDocumentRequest{
		TransaccionID: "t1",
		Filename:      "grande.pdf",
		Data:          make([]byte, 2048),
	}, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestDocumentUploadRejectsDisallowedExtension(t *testing.T) {
	svc := newDocumentServiceForTest(t, &mockDocumentRepo{}, &mockDocumentTransactionRepo{exists: true})

	_, err := svc.Upload(context.Background(), UploadDocumentRequest{
		TransaccionID: "t1",
		Filename:      "script.exe",
		Data:          []byte("binary"),
	}, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestDocumentDownloadTokenRoundTrip(t *testing.T) {
	repo := &mockDocumentRepo{}
	svc := newDocumentServiceForTest(t, repo, &mockDocumentTransactionRepo{exists: true})

	doc, err := svc.Upload(context.Background(), UploadDocumentRequest{
		TransaccionID: "t1",
		Filename:      "voucher.jpg",
		Data:          []byte("image bytes"),
	}, nil)
	require.NoError(t, err)

	download, err := svc.DownloadURL(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Contains(t, download.URL, "/documentos/descargar/")

	token := download.URL[len("/documentos/descargar/"):]
	resolved, err := svc.Resolve(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, resolved.ID)
}

func TestDocumentResolveRejectsTamperedToken(t *testing.T) {
	svc := newDocumentServiceForTest(t, &mockDocumentRepo{}, &mockDocumentTransactionRepo{exists: true})

	_, err := svc.Resolve(context.Background(), "doc1.12345.cGF0aA.deadbeef")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
