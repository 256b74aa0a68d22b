package archive

// Metrics receives archive pipeline events. Implementations must be safe
// for concurrent use; pkg/metrics/prometheus provides the Prometheus one.
type Metrics interface {
	// CompressorStarted is called once per successfully started Stream.
	CompressorStarted(backend string)

	// CompressorFailed is called when a Stream could not be started.
	CompressorFailed(backend string)

	// CompressorReaped is called exactly once per Stream, when it is reaped.
	CompressorReaped(backend string, status ExitStatus)

	// TransferStarted is called when response headers have been sent.
	TransferStarted()

	// ChunkWritten is called after each chunk reached the client.
	ChunkWritten(n int)

	// TransferFinished is called once per Serve with the final outcome.
	TransferFinished(outcome *Outcome)
}

// orNoop substitutes a no-op implementation for nil.
func orNoop(m Metrics) Metrics {
	if m == nil {
		return noopMetrics{}
	}
	return m
}

type noopMetrics struct{}

func (noopMetrics) CompressorStarted(string)            {}
func (noopMetrics) CompressorFailed(string)             {}
func (noopMetrics) CompressorReaped(string, ExitStatus) {}
func (noopMetrics) TransferStarted()                    {}
func (noopMetrics) ChunkWritten(int)                    {}
func (noopMetrics) TransferFinished(*Outcome)           {}
