package service_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"personacard.app/agent/internal/model"
	"personacard.app/agent/internal/service"
	"personacard.app/agent/internal/store"
)

var _ = Describe("DataService", func() {
	var (
		ctx    context.Context
		stores memStores
		tx     *mockTxRunner
		svc    service.DataService
	)

	BeforeEach(func() {
		ctx = context.Background()
		stores = memStores{casts: newMemCastStore(), contexts: newMemContextStore(), personas: &memPersonaStore{}}
		tx = &mockTxRunner{stores: stores}
		svc = service.NewDataService(tx)

		for _, fid := range []int64{1, 2} {
			_, _ = stores.casts.Upsert(ctx, &model.Cast{FID: fid, Hash: "h" + string(rune('0'+fid)), Timestamp: time.Now()})
			_, _ = stores.contexts.Upsert(ctx, &model.UserContext{FID: fid})
			_, _ = stores.personas.Create(ctx, &model.Persona{FID: fid})
		}
	})

	It("should delete only the given user's data", func() {
		res, err := svc.Reset(ctx, 1)

		Expect(err).NotTo(HaveOccurred())
		Expect(res.CastsDeleted).To(Equal(int64(1)))

		_, err = stores.contexts.GetByFID(ctx, 1)
		Expect(errors.Is(err, store.ErrNotFound)).To(BeTrue())
		_, err = stores.personas.GetLatestByFID(ctx, 1)
		Expect(errors.Is(err, store.ErrNotFound)).To(BeTrue())

		_, err = stores.contexts.GetByFID(ctx, 2)
		Expect(err).NotTo(HaveOccurred())
		n, _ := stores.casts.CountByFID(ctx, 2)
		Expect(n).To(Equal(int64(1)))
	})

	It("should return the transaction error", func() {
		tx.err = errors.New("tx failed")

		_, err := svc.Reset(ctx, 1)
		Expect(err).To(MatchError("tx failed"))
	})
})
