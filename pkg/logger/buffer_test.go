//go:build !integration

package logger_test

import (
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/schemactl/schema-registry-mcp/pkg/config"
	"github.com/schemactl/schema-registry-mcp/pkg/logger"
)

var _ = Describe("RingBuffer", func() {
	newLoggerWithBuffer := func(capacity int) (*logger.RingBuffer, func(msg string, args ...any)) {
		cfg := config.DefaultConfig()
		cfg.LogBuffer = capacity
		cfg.LogLevel = "debug"

		buffer := logger.NewRecentActivityBuffer(cfg)
		log := logger.NewSlogLogger(cfg, buffer)
		return buffer, log.Info
	}

	It("should capture emitted log records", func() {
		buffer, logInfo := newLoggerWithBuffer(8)

		logInfo("workflow started", "workflow_id", "linear")

		Expect(buffer.Size()).To(Equal(1))
		lines := buffer.GetLast(1)
		Expect(lines).To(HaveLen(1))
		Expect(lines[0]).To(ContainSubstring("workflow started"))
		Expect(lines[0]).To(ContainSubstring("workflow_id=linear"))
	})

	It("should keep only the most recent entries once full", func() {
		buffer, logInfo := newLoggerWithBuffer(3)

		for i := 0; i < 5; i++ {
			logInfo(fmt.Sprintf("message %d", i))
		}

		Expect(buffer.Size()).To(Equal(3))
		lines := buffer.GetLast(0)
		Expect(lines).To(HaveLen(3))
		Expect(lines[0]).To(ContainSubstring("message 2"))
		Expect(lines[2]).To(ContainSubstring("message 4"))
	})

	It("should return the newest entries oldest first", func() {
		buffer, logInfo := newLoggerWithBuffer(8)

		logInfo("first")
		logInfo("second")
		logInfo("third")

		lines := buffer.GetLast(2)
		Expect(lines).To(HaveLen(2))
		Expect(lines[0]).To(ContainSubstring("second"))
		Expect(lines[1]).To(ContainSubstring("third"))
	})

	It("should report its capacity", func() {
		buffer, _ := newLoggerWithBuffer(8)
		Expect(buffer.Capacity()).To(Equal(8))
	})
})
