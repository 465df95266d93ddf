package video_test

import (
	"context"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"os"
	"path/filepath"
	"runtime"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/cosmofield/internal/video"
)

func writeFrames(dir string, count int) video.Sequence {
	Expect(os.MkdirAll(dir, 0755)).To(Succeed())
	seq := video.NewSequence(dir, count)
	for i := 0; i < count; i++ {
		img := image.NewRGBA(image.Rect(0, 0, 8, 6))
		for y := 0; y < 6; y++ {
			for x := 0; x < 8; x++ {
				img.Set(x, y, color.RGBA{uint8(30 * i), uint8(20 * x), uint8(40 * y), 255})
			}
		}
		f, err := os.Create(seq.Path(i))
		Expect(err).NotTo(HaveOccurred())
		Expect(png.Encode(f, img)).To(Succeed())
		Expect(f.Close()).To(Succeed())
	}
	return seq
}

func fakeFFmpeg(dir, body string) string {
	if runtime.GOOS == "windows" {
		Skip("shell scripts unavailable")
	}
	path := filepath.Join(dir, "ffmpeg")
	Expect(os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755)).To(Succeed())
	return path
}

type silentEncoder struct{}

func (silentEncoder) Encode(context.Context, video.Sequence, string) error { return nil }
func (silentEncoder) Ext() string                                          { return "mp4" }

var _ = Describe("Sequence", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	It("names frames by position", func() {
		seq := video.NewSequence("pics", 3)
		Expect(seq.Path(2)).To(Equal(filepath.Join("pics", "field_0002.png")))
		Expect(seq.Input()).To(Equal(filepath.Join("pics", "field_%04d.png")))
	})

	It("rejects an empty sequence", func() {
		Expect(video.NewSequence(dir, 0).Validate()).To(MatchError(video.ErrNoFrames))
	})

	It("rejects missing frames", func() {
		seq := writeFrames(dir, 3)
		Expect(os.Remove(seq.Path(1))).To(Succeed())
		Expect(seq.Validate()).To(MatchError(video.ErrBadSequence))
	})

	It("discovers a contiguous sequence", func() {
		writeFrames(dir, 4)
		seq, err := video.Discover(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(seq.Count).To(Equal(4))
	})

	It("refuses to discover across a gap", func() {
		seq := writeFrames(dir, 4)
		Expect(os.Remove(seq.Path(2))).To(Succeed())
		_, err := video.Discover(dir)
		Expect(err).To(MatchError(video.ErrBadSequence))
	})

	It("clears frames left by an earlier run", func() {
		writeFrames(dir, 5)
		other := filepath.Join(dir, "notes.txt")
		Expect(os.WriteFile(other, []byte("x"), 0o644)).To(Succeed())

		n, err := video.ClearFrames(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(5))
		_, err = video.Discover(dir)
		Expect(err).To(MatchError(video.ErrNoFrames))
		Expect(other).To(BeAnExistingFile())

		n, err = video.ClearFrames(filepath.Join(dir, "missing"))
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(BeZero())
	})

	It("reports an empty directory", func() {
		_, err := video.Discover(dir)
		Expect(err).To(MatchError(video.ErrNoFrames))
	})
})

var _ = Describe("FFmpeg", func() {
	It("builds the encoder command line", func() {
		seq := video.NewSequence("pics_1024_1000", 280)
		args := video.NewFFmpeg().Args(seq, "out/monopole_video.mp4")
		Expect(args).To(Equal([]string{
			"-framerate", "25",
			"-i", filepath.Join("pics_1024_1000", "field_%04d.png"),
			"-filter:v", "setpts=2*PTS",
			"-r", "30",
			"-pix_fmt", "yuv420p",
			"-frames:v", "280",
			"-y", "out/monopole_video.mp4",
		}))
	})

	It("fills unset options with defaults", func() {
		args := (&video.FFmpeg{SlowDown: 0.5}).Args(video.NewSequence("d", 1), "o.mp4")
		Expect(args).To(ContainElements("25", "setpts=0.5*PTS", "30", "yuv420p"))
	})

	It("resolves encoders by name", func() {
		enc, err := video.EncoderByName("gif")
		Expect(err).NotTo(HaveOccurred())
		Expect(enc.Ext()).To(Equal("gif"))

		_, err = video.EncoderByName("vlc")
		Expect(err).To(MatchError(video.ErrEncoderNotFound))
	})
})

var _ = Describe("Builder", func() {
	var (
		root   string
		frames string
		out    string
		ctx    context.Context
	)

	BeforeEach(func() {
		root = GinkgoT().TempDir()
		frames = filepath.Join(root, "pics_64_1000")
		out = filepath.Join(root, "videos")
		ctx = context.Background()
	})

	It("consumes every frame and writes exactly one video", func() {
		seq := writeFrames(frames, 5)
		script := fakeFFmpeg(root, `for last; do :; done
echo fake > "$last"
`)

		b := video.NewBuilder(&video.FFmpeg{Binary: script}, out, nil)
		path, err := b.Build(ctx, seq, "monopole_video")
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(filepath.Join(out, "monopole_video.mp4")))

		entries, err := os.ReadDir(out)
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(HaveLen(1))

		Expect(frames).NotTo(BeADirectory())
	})

	It("keeps frames when asked", func() {
		seq := writeFrames(frames, 2)
		script := fakeFFmpeg(root, `for last; do :; done
echo fake > "$last"
`)

		b := video.NewBuilder(&video.FFmpeg{Binary: script}, out, nil)
		b.KeepFrames = true
		_, err := b.Build(ctx, seq, "kept")
		Expect(err).NotTo(HaveOccurred())
		Expect(seq.Path(0)).To(BeARegularFile())
		Expect(seq.Path(1)).To(BeARegularFile())
	})

	It("leaves unrelated files in the frame directory", func() {
		seq := writeFrames(frames, 2)
		Expect(os.WriteFile(filepath.Join(frames, "notes.txt"), []byte("x"), 0644)).To(Succeed())

		Expect(video.RemoveFrames(seq)).To(Succeed())
		Expect(seq.Path(0)).NotTo(BeAnExistingFile())
		Expect(filepath.Join(frames, "notes.txt")).To(BeARegularFile())
	})

	It("surfaces encoder failures with their log", func() {
		seq := writeFrames(frames, 1)
		script := fakeFFmpeg(root, "echo 'Invalid pixel format' >&2\nexit 1\n")

		_, err := video.NewBuilder(&video.FFmpeg{Binary: script}, out, nil).Build(ctx, seq, "broken")
		Expect(err).To(MatchError(video.ErrEncodeFailed))
		Expect(err.Error()).To(ContainSubstring("Invalid pixel format"))
		Expect(seq.Path(0)).To(BeARegularFile())
	})

	It("reports a missing encoder binary", func() {
		seq := writeFrames(frames, 1)
		enc := &video.FFmpeg{Binary: filepath.Join(root, "no-such-ffmpeg")}

		_, err := video.NewBuilder(enc, out, nil).Build(ctx, seq, "missing")
		Expect(err).To(MatchError(video.ErrEncoderNotFound))
	})

	It("fails when the encoder writes nothing", func() {
		seq := writeFrames(frames, 1)
		_, err := video.NewBuilder(silentEncoder{}, out, nil).Build(ctx, seq, "silent")
		Expect(err).To(MatchError(video.ErrNoOutput))
	})

	It("rejects an empty sequence before encoding", func() {
		_, err := video.NewBuilder(silentEncoder{}, out, nil).Build(ctx, video.NewSequence(frames, 0), "empty")
		Expect(err).To(MatchError(video.ErrNoFrames))
		Expect(out).NotTo(BeADirectory())
	})

	It("encodes an animated gif", func() {
		seq := writeFrames(frames, 3)

		path, err := video.NewBuilder(video.NewGIF(), out, nil).Build(ctx, seq, "preview")
		Expect(err).NotTo(HaveOccurred())

		f, err := os.Open(path)
		Expect(err).NotTo(HaveOccurred())
		defer f.Close()
		anim, err := gif.DecodeAll(f)
		Expect(err).NotTo(HaveOccurred())
		Expect(anim.Image).To(HaveLen(3))
		Expect(anim.Delay).To(HaveEach(8))
	})
})
