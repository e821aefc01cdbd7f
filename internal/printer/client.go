// internal/printer/client.go
package printer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"printer-service/internal/driver/epson"
	"printer-service/internal/model"
	"printer-service/internal/receipt"
	"printer-service/pkg/driver"
)

// Client is the printer facade used by the application layer.
type Client struct {
	transport  driver.Transport
	conn       *ConnectionManager
	dispatcher *JobDispatcher
	formatter  *receipt.Formatter
	newBuilder func() driver.Builder
	logger     *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithBuilderFactory replaces the ESC/POS command builder.
func WithBuilderFactory(factory func() driver.Builder) Option {
	return func(c *Client) { c.newBuilder = factory }
}

// WithFormatter replaces the default receipt formatter.
func WithFormatter(f *receipt.Formatter) Option {
	return func(c *Client) { c.formatter = f }
}

// NewClient creates a disconnected client. A nil transport yields a client
// whose print calls report NOT_INITIALIZED.
func NewClient(transport driver.Transport, settings model.PrinterSettings, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		transport:  transport,
		dispatcher: NewJobDispatcher(logger),
		formatter:  receipt.NewFormatter(),
		newBuilder: func() driver.Builder { return epson.NewBuilder() },
		logger:     logger.With(zap.String("component", "printer_client")),
	}
	c.conn = NewConnectionManager(transport, settings, logger, func(resp driver.Response) {
		c.dispatcher.Resolve(resp)
	})
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect opens the printer connection. See ConnectionManager.Connect.
func (c *Client) Connect(ctx context.Context, address string, port int) error {
	if c.transport == nil {
		return NewError(CodeNotInitialized, nil)
	}
	return c.conn.Connect(ctx, address, port)
}

// Disconnect closes the printer connection.
func (c *Client) Disconnect(ctx context.Context) {
	if c.transport == nil {
		return
	}
	c.conn.Disconnect(ctx)
}

func (c *Client) IsConnected() bool { return c.conn.IsConnected() }

func (c *Client) ConnectionStatus() model.ConnectionState { return c.conn.State() }

func (c *Client) Settings() model.PrinterSettings { return c.conn.Settings() }

func (c *Client) LastStatus() model.PrinterStatus { return c.conn.LastStatus() }

// SetObserver replaces the registered observer. Last registration wins.
func (c *Client) SetObserver(o Observer) { c.conn.SetObserver(o) }

func (c *Client) StartMonitor() error { return c.conn.StartMonitor() }

func (c *Client) StopMonitor() error { return c.conn.StopMonitor() }

// UpdateSettings merges patch into a new settings record and replaces the
// current one.
func (c *Client) UpdateSettings(patch model.SettingsPatch) (model.PrinterSettings, error) {
	next := patch.Apply(c.conn.Settings())
	if next.Address != "" || next.Interface != model.ConnectionTypeTCP {
		if err := next.Validate(); err != nil {
			return c.conn.Settings(), NewError(CodeInvalidSettings, err)
		}
	}
	c.conn.ReplaceSettings(next)
	c.logger.Info("Printer settings updated",
		zap.String("endpoint", next.Endpoint()),
		zap.Int("density", next.Density),
		zap.String("cut_type", string(next.CutType)),
	)
	return next, nil
}

// PrintReceipt formats and prints data. It never returns an error; every
// failure is reported in the result.
func (c *Client) PrintReceipt(ctx context.Context, data *model.ReceiptData, opts model.PrintOptions) (result model.PrintResult) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Print panicked", zap.Any("panic", r), zap.Stack("stacktrace"))
			result = model.PrintResult{
				Error:     NewError(CodeUnknown, fmt.Errorf("%v", r)).Info(),
				Timestamp: time.Now(),
			}
		}
	}()

	if c.transport == nil {
		return rejected(NewError(CodeNotInitialized, nil))
	}
	device := c.conn.Device()
	if !c.conn.IsConnected() || device == nil {
		return rejected(NewError(CodeNotConnected, nil))
	}
	if data == nil {
		return rejected(NewError(CodePrintFailed, fmt.Errorf("receipt data is nil")))
	}

	settings := c.conn.Settings()
	job := model.NewPrintJob(settings)

	payload, err := c.build(data, settings, opts)
	if err != nil {
		c.logger.Error("Failed to build print job", zap.String("job_id", job.ID), zap.Error(err))
		return failure(job, NewError(CodePrintFailed, err))
	}

	return c.dispatcher.Dispatch(ctx, device, job, payload)
}

// build renders every copy into one command stream: drawer pulse, copies
// with partial cuts between them, final cut, buzzer.
func (c *Client) build(data *model.ReceiptData, settings model.PrinterSettings, opts model.PrintOptions) ([]byte, error) {
	copies, cutEach, drawer, buzzer := opts.Resolve(settings)

	b := c.newBuilder()
	b.AddTextLang("ja")
	b.AddDensity(settings.Density)

	if drawer {
		b.AddPulse()
	}
	for i := 0; i < copies; i++ {
		c.formatter.Format(b, data)
		if cutEach && i < copies-1 {
			b.AddCut(model.CutPartial)
		}
	}
	b.AddCut(settings.CutType)
	if buzzer {
		b.AddSound()
	}
	return b.Encode()
}

func rejected(err *Error) model.PrintResult {
	return model.PrintResult{Error: err.Info(), Timestamp: time.Now()}
}
