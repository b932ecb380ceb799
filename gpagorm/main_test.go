package gpagorm

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/melmanss/gpa"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

// Test models
type TestOwner struct {
	ID    int64       `gorm:"primaryKey"`
	Email string      `gorm:"uniqueIndex;size:255;not null"`
	Name  string      `gorm:"size:100"`
	Items []*TestItem `gorm:"foreignKey:OwnerID"`
}

type TestItem struct {
	ID      int64  `gorm:"primaryKey"`
	OwnerID int64  `gorm:"index"`
	Label   string `gorm:"size:100;not null"`
}

// Test suite
type GormAdapterTestSuite struct {
	suite.Suite
	provider gpa.Provider
	session  *gpa.Session
	store    *Store
	ctx      context.Context
}

func (suite *GormAdapterTestSuite) SetupTest() {
	config := gpa.Config{
		Driver:   "sqlite",
		Database: filepath.Join(suite.T().TempDir(), "gorm.db"),
		Options: map[string]interface{}{
			"gorm": map[string]interface{}{
				"log_level": "silent",
			},
		},
		Logging: gpa.LoggingConfig{Mode: "test"},
	}

	provider, err := gpa.NewProvider("gorm", config)
	require.NoError(suite.T(), err)
	suite.provider = provider
	suite.ctx = context.Background()

	require.NoError(suite.T(), provider.Migrate(suite.ctx, &TestOwner{}, &TestItem{}))

	session, err := provider.OpenSession(suite.ctx)
	require.NoError(suite.T(), err)
	suite.session = session
	require.NoError(suite.T(), session.Read(suite.ctx, func(st gpa.Store) error {
		suite.store = st.(*Store)
		return nil
	}))
}

func (suite *GormAdapterTestSuite) TearDownTest() {
	suite.NoError(suite.session.Close())
	suite.NoError(suite.provider.Close())
}

// insertOwner writes an owner row so items pass the owner_id foreign key.
func (suite *GormAdapterTestSuite) insertOwner(email string) int64 {
	owner := &TestOwner{Email: email, Name: email}
	require.NoError(suite.T(), suite.store.Insert(suite.ctx, owner))
	return owner.ID
}

// =====================================
// Provider Tests
// =====================================

func (suite *GormAdapterTestSuite) TestProviderFactory() {
	factory := &Factory{}
	assert.Contains(suite.T(), factory.SupportedDrivers(), "sqlite")
	assert.Contains(suite.T(), factory.SupportedDrivers(), "postgres")

	_, err := factory.Create(gpa.Config{Driver: "oracle"})
	assert.True(suite.T(), gpa.IsErrorType(err, gpa.ErrorTypeUnsupported))
}

func (suite *GormAdapterTestSuite) TestProviderInfo() {
	info := suite.provider.ProviderInfo()
	assert.Equal(suite.T(), "gorm", info.Name)
	assert.Equal(suite.T(), gpa.DatabaseTypeSQL, info.DatabaseType)
	assert.Contains(suite.T(), info.Features, gpa.FeatureTransactions)
	assert.NoError(suite.T(), suite.provider.Health())
	assert.NoError(suite.T(), suite.provider.Configure(gpa.Config{MaxOpenConns: 4, MaxIdleConns: 2}))
}

// =====================================
// Store Tests
// =====================================

func (suite *GormAdapterTestSuite) TestInsertAndFirst() {
	owner := &TestOwner{Email: "a@example.com", Name: "A", Items: []*TestItem{{Label: "ignored"}}}
	require.NoError(suite.T(), suite.store.Insert(suite.ctx, owner))
	assert.NotZero(suite.T(), owner.ID)

	var found TestOwner
	require.NoError(suite.T(), suite.store.First(suite.ctx, &found, gpa.Where("id", gpa.OpEqual, owner.ID)))
	assert.Equal(suite.T(), "A", found.Name)
	assert.Empty(suite.T(), found.Items)

	count, err := suite.store.Count(suite.ctx, &TestItem{})
	require.NoError(suite.T(), err)
	assert.Zero(suite.T(), count, "associations are never written implicitly")
}

func (suite *GormAdapterTestSuite) TestFirstNotFound() {
	var found TestOwner
	err := suite.store.First(suite.ctx, &found, gpa.Where("id", gpa.OpEqual, int64(404)))
	assert.True(suite.T(), gpa.IsNotFound(err))
}

func (suite *GormAdapterTestSuite) TestUpdateRowsAffected() {
	owner := &TestOwner{Email: "a@example.com", Name: "A"}
	require.NoError(suite.T(), suite.store.Insert(suite.ctx, owner))

	owner.Name = ""
	rows, err := suite.store.Update(suite.ctx, owner)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(1), rows)

	var found TestOwner
	require.NoError(suite.T(), suite.store.First(suite.ctx, &found, gpa.Where("id", gpa.OpEqual, owner.ID)))
	assert.Equal(suite.T(), "", found.Name, "zero values are written")

	rows, err = suite.store.Update(suite.ctx, &TestOwner{ID: 999, Email: "ghost@example.com"})
	require.NoError(suite.T(), err)
	assert.Zero(suite.T(), rows)
}

func (suite *GormAdapterTestSuite) TestFindWithOptions() {
	first := suite.insertOwner("a@example.com")
	second := suite.insertOwner("b@example.com")
	for _, label := range []string{"c", "a", "b"} {
		require.NoError(suite.T(), suite.store.Insert(suite.ctx, &TestItem{OwnerID: first, Label: label}))
	}
	require.NoError(suite.T(), suite.store.Insert(suite.ctx, &TestItem{OwnerID: second, Label: "z"}))

	var items []*TestItem
	require.NoError(suite.T(), suite.store.Find(suite.ctx, &items,
		gpa.Where("owner_id", gpa.OpEqual, first),
		gpa.OrderBy("label", gpa.OrderAsc),
		gpa.Limit(2),
	))
	require.Len(suite.T(), items, 2)
	assert.Equal(suite.T(), "a", items[0].Label)
	assert.Equal(suite.T(), "b", items[1].Label)

	items = nil
	require.NoError(suite.T(), suite.store.Find(suite.ctx, &items, gpa.Where("label", gpa.OpIn, []interface{}{"a", "z"})))
	assert.Len(suite.T(), items, 2)
}

func (suite *GormAdapterTestSuite) TestDelete() {
	ownerID := suite.insertOwner("a@example.com")
	first := &TestItem{OwnerID: ownerID, Label: "keep"}
	second := &TestItem{OwnerID: ownerID, Label: "drop"}
	require.NoError(suite.T(), suite.store.Insert(suite.ctx, first))
	require.NoError(suite.T(), suite.store.Insert(suite.ctx, second))

	_, err := suite.store.Delete(suite.ctx, &TestItem{})
	assert.True(suite.T(), gpa.IsValidation(err))

	rows, err := suite.store.Delete(suite.ctx, &TestItem{},
		gpa.Where("owner_id", gpa.OpEqual, ownerID),
		gpa.WhereNotIn("id", []interface{}{first.ID}),
	)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(1), rows)

	count, err := suite.store.Count(suite.ctx, &TestItem{})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(1), count)
}

func (suite *GormAdapterTestSuite) TestRawQuery() {
	owner := &TestOwner{Email: "a@example.com", Name: "A"}
	require.NoError(suite.T(), suite.store.Insert(suite.ctx, owner))
	require.NoError(suite.T(), suite.store.Insert(suite.ctx, &TestItem{OwnerID: owner.ID, Label: "x"}))

	type row struct {
		Email string `gorm:"column:email"`
		Label string `gorm:"column:label"`
	}
	var rows []row
	require.NoError(suite.T(), suite.store.RawQuery(suite.ctx, &rows,
		"SELECT o.email AS email, i.label AS label FROM test_owner o LEFT JOIN test_item i ON i.owner_id = o.id WHERE o.id = ?", owner.ID))
	require.Len(suite.T(), rows, 1)
	assert.Equal(suite.T(), "x", rows[0].Label)
}

func (suite *GormAdapterTestSuite) TestTransactionRollback() {
	ownerID := suite.insertOwner("a@example.com")
	err := suite.store.Transaction(suite.ctx, func(tx gpa.Store) error {
		require.NoError(suite.T(), tx.Insert(suite.ctx, &TestItem{OwnerID: ownerID, Label: "rolled back"}))
		// nested calls join the outer transaction
		return tx.Transaction(suite.ctx, func(inner gpa.Store) error {
			return errors.New("boom")
		})
	})
	require.Error(suite.T(), err)

	count, err := suite.store.Count(suite.ctx, &TestItem{})
	require.NoError(suite.T(), err)
	assert.Zero(suite.T(), count)
}

func (suite *GormAdapterTestSuite) TestTransactionCommit() {
	ownerID := suite.insertOwner("a@example.com")
	require.NoError(suite.T(), suite.store.Transaction(suite.ctx, func(tx gpa.Store) error {
		return tx.Insert(suite.ctx, &TestItem{OwnerID: ownerID, Label: "kept"})
	}))

	count, err := suite.store.Count(suite.ctx, &TestItem{})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(1), count)
}

func (suite *GormAdapterTestSuite) TestForeignKeyEnforced() {
	err := suite.store.Insert(suite.ctx, &TestItem{OwnerID: 404, Label: "orphan"})
	assert.True(suite.T(), gpa.IsErrorType(err, gpa.ErrorTypeConstraint))
}

func (suite *GormAdapterTestSuite) TestDuplicateKey() {
	require.NoError(suite.T(), suite.store.Insert(suite.ctx, &TestOwner{Email: "dup@example.com"}))
	err := suite.store.Insert(suite.ctx, &TestOwner{Email: "dup@example.com"})
	assert.True(suite.T(), gpa.IsDuplicate(err))
}

func (suite *GormAdapterTestSuite) TestSessionClosedReleasesConnection() {
	session, err := suite.provider.OpenSession(suite.ctx)
	require.NoError(suite.T(), err)
	require.NoError(suite.T(), session.Close())
	require.NoError(suite.T(), session.Close())

	err = session.Read(suite.ctx, func(st gpa.Store) error { return nil })
	assert.True(suite.T(), gpa.IsConnection(err))
}

func TestGormAdapterSuite(t *testing.T) {
	suite.Run(t, new(GormAdapterTestSuite))
}

// =====================================
// Unit Tests
// =====================================

func TestConvertGormError(t *testing.T) {
	tests := []struct {
		err      error
		expected gpa.ErrorType
	}{
		{gorm.ErrRecordNotFound, gpa.ErrorTypeNotFound},
		{gorm.ErrInvalidTransaction, gpa.ErrorTypeTransaction},
		{gorm.ErrMissingWhereClause, gpa.ErrorTypeValidation},
		{gorm.ErrDuplicatedKey, gpa.ErrorTypeDuplicate},
		{errors.New("UNIQUE constraint failed: student.email"), gpa.ErrorTypeDuplicate},
		{errors.New("FOREIGN KEY constraint failed"), gpa.ErrorTypeConstraint},
		{errors.New("i/o timeout"), gpa.ErrorTypeTimeout},
		{errors.New("sql: database is closed"), gpa.ErrorTypeConnection},
		{errors.New("near \"SELEC\": syntax error"), gpa.ErrorTypeDatabase},
	}

	for _, tt := range tests {
		converted := convertGormError(tt.err)
		assert.True(t, gpa.IsErrorType(converted, tt.expected), "%v -> %v", tt.err, converted)
		assert.True(t, errors.Is(converted, tt.err))
	}

	assert.Nil(t, convertGormError(nil))

	already := gpa.NewError(gpa.ErrorTypeNotFound, "x")
	assert.Equal(t, already, convertGormError(already))
}

func TestDSNBuilders(t *testing.T) {
	config := gpa.Config{Host: "db", Port: 5432, Username: "app", Password: "pw", Database: "school"}
	assert.Equal(t, "host=db port=5432 user=app password=pw dbname=school sslmode=disable", buildPostgresDSN(config))

	config.Port = 3306
	assert.Equal(t, "app:pw@tcp(db:3306)/school?charset=utf8mb4&parseTime=True&loc=Local&clientFoundRows=true", buildMySQLDSN(config))

	config.Port = 1433
	assert.Equal(t, "sqlserver://app:pw@db:1433?database=school", buildSQLServerDSN(config))

	config.ConnectionURL = "postgres://override"
	assert.Equal(t, "postgres://override", buildPostgresDSN(config))

	ssl := gpa.Config{Host: "db", Port: 5432, Database: "school", SSL: gpa.SSLConfig{Enabled: true, Mode: "verify-full", CAFile: "/ca.pem"}}
	assert.Contains(t, buildPostgresDSN(ssl), "sslmode=verify-full sslrootcert=/ca.pem")
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, parseLogLevel("silent"), parseLogLevel("SILENT"))
	assert.NotEqual(t, parseLogLevel("silent"), parseLogLevel("info"))
	assert.Equal(t, parseLogLevel("warn"), parseLogLevel("unknown"))
}
