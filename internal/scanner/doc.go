// Package scanner drives a barcode detection engine from a merged, immutable
// scan configuration.
//
// An Adapter is built from caller options plus the documented defaults,
// initializes an Engine asynchronously and, once the engine reports success,
// starts detection and subscribes the caller's handlers:
//
//	a, err := scanner.New(eng, &scanner.Options{InputStream: stream}, onDetected, nil)
//	if err != nil {
//		return err // *scanner.ConfigurationError
//	}
//	if err := <-a.Init(ctx); err != nil {
//		return err // *scanner.EngineInitError
//	}
//	defer a.Stop()
package scanner
