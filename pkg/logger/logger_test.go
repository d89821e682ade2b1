package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/aff4meta/pkg/logger"
)

func decodeJSONLine(buf *bytes.Buffer) map[string]any {
	var parsed map[string]any
	Expect(json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &parsed)).To(Succeed())
	return parsed
}

var _ = Describe("Logger", func() {
	Describe("New", func() {
		It("writes text records with attributes", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf))
			l.Info("trimming object from cache", "urn", "aff4://volume/stream")

			Expect(buf.String()).To(ContainSubstring("trimming object from cache"))
			Expect(buf.String()).To(ContainSubstring("urn=aff4://volume/stream"))
		})

		It("drops debug records unless debug is enabled", func() {
			var quiet, loud bytes.Buffer
			logger.New(logger.WithWriter(&quiet)).Debug("hidden")
			logger.New(logger.WithWriter(&loud), logger.WithDebug(true)).Debug("shown")

			Expect(quiet.String()).To(BeEmpty())
			Expect(loud.String()).To(ContainSubstring("shown"))
		})

		It("emits JSON when requested", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf), logger.WithJSON(true))
			l.Info("chunk written", "index", 3)

			parsed := decodeJSONLine(&buf)
			Expect(parsed["msg"]).To(Equal("chunk written"))
			Expect(parsed["index"]).To(BeNumerically("==", 3))
		})

		It("renders pretty output through charmbracelet/log", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf), logger.WithPretty(true))
			l.Warn("index disabled")

			Expect(buf.String()).To(ContainSubstring("index disabled"))
		})

		It("writes to every configured writer", func() {
			var a, b bytes.Buffer
			logger.New(logger.WithWriters(&a, &b)).Info("both")

			Expect(a.String()).To(ContainSubstring("both"))
			Expect(b.String()).To(ContainSubstring("both"))
		})
	})

	Describe("Nop", func() {
		It("reports every level disabled", func() {
			l := logger.Nop()
			Expect(l.Handler().Enabled(context.Background(), slog.LevelError)).To(BeFalse())
			Expect(func() { l.With("k", "v").Error("nothing") }).NotTo(Panic())
		})
	})

	Describe("Multi", func() {
		It("dispatches to all loggers", func() {
			var text, structured bytes.Buffer
			multi := logger.Multi(
				logger.New(logger.WithWriter(&text)),
				logger.New(logger.WithWriter(&structured), logger.WithJSON(true)),
			)

			multi.Info("flushed", "objects", 2)

			Expect(text.String()).To(ContainSubstring("flushed"))
			Expect(decodeJSONLine(&structured)["objects"]).To(BeNumerically("==", 2))
		})

		It("carries groups into every handler", func() {
			var buf bytes.Buffer
			multi := logger.Multi(logger.New(logger.WithWriter(&buf), logger.WithJSON(true)))
			multi.WithGroup("volume").Info("loaded", "urn", "aff4://v")

			group, ok := decodeJSONLine(&buf)["volume"].(map[string]any)
			Expect(ok).To(BeTrue())
			Expect(group["urn"]).To(Equal("aff4://v"))
		})

		It("skips handlers that are disabled for the level", func() {
			var buf bytes.Buffer
			multi := logger.Multi(logger.Nop(), logger.New(logger.WithWriter(&buf)))
			multi.Debug("not enabled anywhere")

			Expect(buf.String()).To(BeEmpty())
		})
	})
})
