package simulation

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type nopTicker struct {
	path     string
	manifest Manifest
}

func (t *nopTicker) Tick() {}

func nopFactory(path string, m Manifest) (Ticker, error) {
	return &nopTicker{path: path, manifest: m}, nil
}

var _ = Describe("Storage", func() {
	var (
		root string
		path string
	)

	BeforeEach(func() {
		root = GinkgoT().TempDir()
		path = filepath.Join(root, "sims", "test")
	})

	Context("when creating", func() {
		It("should create the root and configure it", func() {
			var configured []string

			err := CreateNewSim(path, func(p string) error {
				configured = append(configured, p)
				return WriteManifest(p, Manifest{"tick": 0.0})
			})

			Expect(err).ToNot(HaveOccurred())
			Expect(configured).To(Equal([]string{path}))
			Expect(path).To(BeADirectory())
			Expect(ManifestPath(path)).To(BeAnExistingFile())
		})

		It("should fail if the simulation already exists", func() {
			Expect(CreateNewSim(path, nil)).To(Succeed())

			called := false
			err := CreateNewSim(path, func(string) error {
				called = true
				return nil
			})

			Expect(err).To(MatchError(ErrAlreadyExists))
			Expect(errors.Is(err, fs.ErrExist)).To(BeTrue())
			Expect(called).To(BeFalse())
		})

		It("should accept a path with a trailing separator", func() {
			var configured []string

			err := CreateNewSim(path+string(filepath.Separator), func(p string) error {
				configured = append(configured, p)
				return WriteManifest(p, Manifest{})
			})

			Expect(err).ToNot(HaveOccurred())
			Expect(configured).To(Equal([]string{path}))
			Expect(ManifestPath(path)).To(BeAnExistingFile())
		})

		It("should propagate configuration errors", func() {
			boom := errors.New("boom")

			err := CreateNewSim(path, func(string) error { return boom })

			Expect(err).To(MatchError(boom))
		})
	})

	Context("when loading", func() {
		It("should return nothing for a missing path", func() {
			s, err := LoadSim(filepath.Join(root, "missing"), nopFactory)

			Expect(err).ToNot(HaveOccurred())
			Expect(s).To(BeNil())
		})

		It("should return nothing for a missing manifest", func() {
			Expect(CreateNewSim(path, nil)).To(Succeed())

			s, err := LoadSim(path, nopFactory)

			Expect(err).ToNot(HaveOccurred())
			Expect(s).To(BeNil())
		})

		It("should return nothing when the path is a file", func() {
			file := filepath.Join(root, "file")
			Expect(os.WriteFile(file, []byte("x"), 0o644)).To(Succeed())

			s, err := LoadSim(file, nopFactory)

			Expect(err).ToNot(HaveOccurred())
			Expect(s).To(BeNil())
		})

		It("should hand the manifest to the factory", func() {
			Expect(CreateNewSim(path, func(p string) error {
				return WriteManifest(p, Manifest{"tick": 12.0, "name": "x"})
			})).To(Succeed())

			s, err := LoadSim(path, nopFactory)

			Expect(err).ToNot(HaveOccurred())
			Expect(s.Path()).To(Equal(path))
			Expect(s.HasStarted()).To(BeFalse())

			t := s.Ticker().(*nopTicker)
			Expect(t.path).To(Equal(path))
			Expect(t.manifest).To(Equal(Manifest{"tick": 12.0, "name": "x"}))
			Expect(s.Manifest()).To(Equal(t.manifest))
		})

		It("should report factory errors", func() {
			Expect(CreateNewSim(path, func(p string) error {
				return WriteManifest(p, Manifest{})
			})).To(Succeed())
			boom := errors.New("boom")

			s, err := LoadSim(path, func(string, Manifest) (Ticker, error) {
				return nil, boom
			})

			Expect(s).To(BeNil())
			Expect(err).To(MatchError(boom))
		})

		It("should report malformed manifests", func() {
			Expect(CreateNewSim(path, nil)).To(Succeed())
			Expect(os.WriteFile(ManifestPath(path), []byte("{"), 0o644)).
				To(Succeed())

			s, err := LoadSim(path, nopFactory)

			Expect(s).To(BeNil())
			Expect(err).To(MatchError(ContainSubstring("decoding manifest")))
		})
	})

	It("should round trip a manifest", func() {
		m := Manifest{
			"tick":     42.0,
			"name":     "sim",
			"enabled":  true,
			"nothing":  nil,
			"genomes":  []any{"a", "b"},
			"networks": []any{},
			"params": map[string]any{
				"threshold": 100.0,
				"nested":    map[string]any{"x": []any{1.0, 2.5}},
			},
		}
		Expect(CreateNewSim(path, nil)).To(Succeed())

		s := MakeBuilder().WithPath(path).WithManifest(m).
			WithTicker(&nopTicker{}).Build()
		Expect(s.Save()).To(Succeed())

		loaded, err := LoadSim(path, nopFactory)
		Expect(err).ToNot(HaveOccurred())
		Expect(loaded.Manifest()).To(Equal(m))
	})

	It("should replace an existing manifest", func() {
		Expect(CreateNewSim(path, nil)).To(Succeed())
		Expect(WriteManifest(path, Manifest{"a": 1.0})).To(Succeed())
		Expect(WriteManifest(path, Manifest{"b": 2.0})).To(Succeed())

		m, err := ReadManifest(path)

		Expect(err).ToNot(HaveOccurred())
		Expect(m).To(Equal(Manifest{"b": 2.0}))

		entries, err := os.ReadDir(path)
		Expect(err).ToNot(HaveOccurred())
		Expect(entries).To(HaveLen(1))
	})

	It("should write a world-readable manifest", func() {
		Expect(CreateNewSim(path, nil)).To(Succeed())
		Expect(WriteManifest(path, Manifest{})).To(Succeed())

		info, err := os.Stat(ManifestPath(path))

		Expect(err).ToNot(HaveOccurred())
		Expect(info.Mode().Perm()).To(Equal(os.FileMode(0o644)))
	})
})

var _ = Describe("JSONCodec", func() {
	It("should encode a nil manifest as an empty object", func() {
		buf := bytes.NewBuffer(nil)
		codec := JSONCodec{}

		Expect(codec.Encode(buf, nil)).To(Succeed())

		m, err := codec.Decode(buf)
		Expect(err).ToNot(HaveOccurred())
		Expect(m).To(Equal(Manifest{}))
	})

	It("should decode null as an empty manifest", func() {
		m, err := JSONCodec{}.Decode(bytes.NewBufferString("null"))

		Expect(err).ToNot(HaveOccurred())
		Expect(m).To(Equal(Manifest{}))
	})

	It("should reject non-object documents", func() {
		_, err := JSONCodec{}.Decode(bytes.NewBufferString("[1]"))

		Expect(err).To(HaveOccurred())
	})
})
