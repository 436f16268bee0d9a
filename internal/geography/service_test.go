package geography

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pennyekart/pennyekart-backend/pkg/db/dbtest"
	"github.com/pennyekart/pennyekart-backend/pkg/db/models"
	"github.com/pennyekart/pennyekart-backend/pkg/enums"
)

type fixture struct {
	db        *gorm.DB
	svc       Service
	localBody uuid.UUID
	otherBody uuid.UUID
	micro     models.Godown
	area      models.Godown
	local     models.Godown
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := dbtest.Open(t)

	f := fixture{db: db, localBody: uuid.New(), otherBody: uuid.New()}
	f.micro = createGodown(t, db, "Ward Hub", enums.GodownTypeMicro)
	f.area = createGodown(t, db, "Area Hub", enums.GodownTypeArea)
	f.local = createGodown(t, db, "Backstock", enums.GodownTypeLocal)

	bind(t, db, f.micro.ID, f.localBody, 3, 4)
	bind(t, db, f.area.ID, f.localBody)
	// local godowns may carry ward bindings but must never be returned
	bind(t, db, f.local.ID, f.localBody, 3)

	svc, err := NewService(NewRepository(db), nil)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func createGodown(t *testing.T, db *gorm.DB, name string, kind enums.GodownType) models.Godown {
	t.Helper()
	g := models.Godown{Name: name, GodownType: kind}
	require.NoError(t, db.Create(&g).Error)
	return g
}

func bind(t *testing.T, db *gorm.DB, godownID, localBodyID uuid.UUID, wards ...int) {
	t.Helper()
	require.NoError(t, db.Create(&models.GodownLocalBody{GodownID: godownID, LocalBodyID: localBodyID}).Error)
	for _, w := range wards {
		require.NoError(t, db.Create(&models.GodownWard{GodownID: godownID, LocalBodyID: localBodyID, WardNumber: w}).Error)
	}
}

func TestResolveMicroAndArea(t *testing.T) {
	f := newFixture(t)
	ward := 3

	ids, err := f.svc.Resolve(context.Background(), &f.localBody, &ward)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{f.micro.ID, f.area.ID}, ids)
	assert.NotContains(t, ids, f.local.ID)
}

func TestResolveAreaOnlyForUnboundWard(t *testing.T) {
	f := newFixture(t)
	ward := 9

	ids, err := f.svc.Resolve(context.Background(), &f.localBody, &ward)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{f.area.ID}, ids)
}

func TestResolveMissingRegionIsEmpty(t *testing.T) {
	f := newFixture(t)
	ward := 3

	ids, err := f.svc.Resolve(context.Background(), nil, &ward)
	require.NoError(t, err)
	assert.Empty(t, ids)

	ids, err = f.svc.Resolve(context.Background(), &f.localBody, nil)
	require.NoError(t, err)
	assert.Empty(t, ids)

	ids, err = f.svc.Resolve(context.Background(), &f.otherBody, &ward)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestResolveNonPositiveWardIsEmpty(t *testing.T) {
	f := newFixture(t)
	// a stray ward-0 row must not make zero look like a real ward
	bind(t, f.db, createGodown(t, f.db, "Zero Hub", enums.GodownTypeMicro).ID, f.otherBody, 0)

	for _, ward := range []int{0, -2} {
		w := ward
		ids, err := f.svc.Resolve(context.Background(), &f.localBody, &w)
		require.NoError(t, err)
		assert.Empty(t, ids, "ward %d", ward)

		ids, err = f.svc.Resolve(context.Background(), &f.otherBody, &w)
		require.NoError(t, err)
		assert.Empty(t, ids, "ward %d", ward)
	}
}

func TestResolveDeduplicatesGodownBoundTwice(t *testing.T) {
	f := newFixture(t)
	// an area godown with a stray ward row still appears once
	require.NoError(t, f.db.Create(&models.GodownWard{GodownID: f.area.ID, LocalBodyID: f.localBody, WardNumber: 3}).Error)
	ward := 3

	ids, err := f.svc.Resolve(context.Background(), &f.localBody, &ward)
	require.NoError(t, err)
	assert.Len(t, ids, 2)
}

func TestResolveForUser(t *testing.T) {
	f := newFixture(t)
	ward := 4
	withRegion := models.Profile{UserID: uuid.New(), LocalBodyID: &f.localBody, WardNumber: &ward}
	withoutRegion := models.Profile{UserID: uuid.New()}
	require.NoError(t, f.db.Create(&withRegion).Error)
	require.NoError(t, f.db.Create(&withoutRegion).Error)

	ids, err := f.svc.ResolveForUser(context.Background(), withRegion.UserID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{f.micro.ID, f.area.ID}, ids)

	ids, err = f.svc.ResolveForUser(context.Background(), withoutRegion.UserID)
	require.NoError(t, err)
	assert.Empty(t, ids)

	ids, err = f.svc.ResolveForUser(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestUnionKeepsOrder(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	got := union([]uuid.UUID{a, b}, []uuid.UUID{b, c, a})
	assert.Equal(t, []uuid.UUID{a, b, c}, got)
}
