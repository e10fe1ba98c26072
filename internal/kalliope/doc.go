// Package kalliope is an HTTP client for the Kalliope REST API.
//
// It lists the synapses configured on a Kalliope server and starts them,
// either by name with signal parameters or by free-text order.
//
//	GET  {url}/synapses
//	POST {url}/synapses/start/id/{name}   {"mute": bool, "parameters": {...}}
//	POST {url}/synapses/start/order       {"order": "...", "mute": bool}
//
// Every request carries HTTP Basic credentials from synapse.Settings.
// Settings are passed per call, so one Client can talk to several servers.
//
// # Errors
//
// Transport failures wrap ErrRequestFailed. A response with a non-2xx status
// is returned as *StatusError, which matches ErrUnauthorized, ErrNotFound or
// ErrServer with errors.Is. Nothing is retried.
//
// # Usage
//
//	client := kalliope.New(kalliope.WithTimeout(30 * time.Second))
//	synapses, err := client.GetSynapses(ctx, cfg.Settings())
//	if err != nil {
//	    return err
//	}
//	resp, err := client.RunSynapse(ctx, synapses[0], cfg.Settings())
package kalliope
