package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("LocalStore", func() {
	var (
		tmpDir string
		store  *LocalStore
		ctx    context.Context
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		var err error
		store, err = NewLocalStore(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		store.now = func() time.Time { return time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC) }
		ctx = context.Background()
	})

	Describe("Put", func() {
		var (
			ref string
			err error
		)

		JustBeforeEach(func() {
			ref, err = store.Put(ctx, "alice", strings.NewReader("jpeg bytes"), 10, "image/jpeg")
		})

		It("writes the image under owner/year/month", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(ref).To(HavePrefix("alice/2024/03/"))
			Expect(ref).To(HaveSuffix(".jpg"))
			data, readErr := os.ReadFile(store.Path(ref))
			Expect(readErr).NotTo(HaveOccurred())
			Expect(string(data)).To(Equal("jpeg bytes"))
		})

		When("the context is cancelled", func() {
			BeforeEach(func() {
				c, cancel := context.WithCancel(ctx)
				cancel()
				ctx = c
			})

			It("writes nothing", func() {
				Expect(err).To(MatchError(context.Canceled))
				Expect(filepath.Join(tmpDir, "alice")).NotTo(BeADirectory())
			})
		})
	})

	It("keeps owners from escaping the base directory", func() {
		ref, err := store.Put(ctx, "../../etc", strings.NewReader("x"), 1, "image/png")
		Expect(err).NotTo(HaveOccurred())
		Expect(ref).To(HavePrefix("etc/"))
		Expect(store.Path(ref)).To(HavePrefix(tmpDir))
	})

	Describe("Delete", func() {
		It("removes a stored image", func() {
			ref, err := store.Put(ctx, "bob", strings.NewReader("x"), 1, "image/png")
			Expect(err).NotTo(HaveOccurred())
			Expect(store.Delete(ctx, ref)).To(Succeed())
			Expect(store.Path(ref)).NotTo(BeAnExistingFile())
		})

		It("returns the error for a missing image", func() {
			err := store.Delete(ctx, "nobody/2024/01/missing.png")
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("deleting file"))
		})
	})

	It("creates a missing base directory", func() {
		dir := filepath.Join(GinkgoT().TempDir(), "receipts")
		_, err := NewLocalStore(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(dir).To(BeADirectory())
	})
})

var _ = Describe("Extension", func() {
	DescribeTable("maps content types",
		func(ct, ext string) {
			Expect(Extension(ct)).To(Equal(ext))
		},
		Entry("jpeg", "image/jpeg", ".jpg"),
		Entry("png with params", "image/png; charset=binary", ".png"),
		Entry("upper case", "IMAGE/WEBP", ".webp"),
		Entry("unknown", "application/octet-stream", ".bin"),
	)
})
