package router

import (
	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/models"
	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/registry"
	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/xcm"
)

// Route is the resolved shape of a transfer: where it starts, where it ends
// and which encoding rules apply
type Route struct {
	Scenario    models.Scenario
	Bridge      models.BridgeKind
	Origin      *registry.Chain
	Destination *registry.Chain // nil when the caller gave a raw location
	// DestLocation is the caller supplied destination, used as-is
	DestLocation *xcm.MultiLocation
	Version      xcm.Version
}

// IsBridge reports whether the route leaves the origin's relay network
func (r *Route) IsBridge() bool {
	return r.Bridge != models.BridgeNone
}

// DestinationID returns the destination chain id or a description of the location
func (r *Route) DestinationID() string {
	if r.Destination != nil {
		return r.Destination.ID
	}
	if r.DestLocation != nil {
		return r.DestLocation.String()
	}
	return ""
}

// ResolveOrigin returns the chain a transfer starts on. An intent without an
// origin starts on the relay chain of its destination's family.
func (e *Engine) ResolveOrigin(intent models.TransferIntent) (string, error) {
	if intent.From != "" {
		c, ok := e.registry.Get(intent.From)
		if !ok {
			return "", models.NewNodeNotSupportedError(intent.From, "unknown origin chain")
		}
		return c.ID, nil
	}
	relay, err := e.relayOfDestination(intent.To)
	if err != nil {
		return "", err
	}
	return relay.ID, nil
}

func (e *Engine) relayOfDestination(to *models.Destination) (*registry.Chain, error) {
	switch {
	case to == nil:
		return nil, models.NewInvalidParameterError("relay to relay transfers are not supported")
	case to.Chain == "":
		return nil, models.NewInvalidParameterError("an origin chain is required when the destination is a raw location")
	}
	dest, ok := e.registry.Get(to.Chain)
	if !ok {
		return nil, models.NewNodeNotSupportedError(to.Chain, "unknown destination chain")
	}
	if dest.IsRelay() {
		return nil, models.NewInvalidParameterError("relay to relay transfers are not supported")
	}
	if dest.IsExternal() {
		return nil, models.NewIncompatibleNodesError("%s can not be reached from a relay chain", dest.ID)
	}
	relay, ok := e.registry.Relay(dest.Relay)
	if !ok {
		return nil, models.NewNodeNotSupportedError(dest.ID, "no relay chain registered for %s", dest.Relay)
	}
	return relay, nil
}

// ResolveRoute classifies the intent into a scenario, detects bridges and picks
// the encoding version. Nothing is encoded yet.
func (e *Engine) ResolveRoute(intent models.TransferIntent) (*Route, error) {
	if err := intent.To.Validate(); err != nil {
		return nil, err
	}
	origin, err := e.origin(intent)
	if err != nil {
		return nil, err
	}
	if origin.IsExternal() {
		return nil, models.NewNodeNotSupportedError(origin.ID, "transfers from external consensus systems are not supported")
	}

	route := &Route{Origin: origin}
	if err := e.classify(route, intent.To); err != nil {
		return nil, err
	}
	if err := e.checkScenario(route); err != nil {
		return nil, err
	}

	route.Version = origin.Version
	if route.Scenario == models.ScenarioRelayToPara && route.Destination != nil {
		route.Version = route.Destination.Version
	}
	if intent.Version != nil {
		if !intent.Version.Valid() {
			return nil, models.NewInvalidParameterError("unsupported xcm version %d", *intent.Version)
		}
		route.Version = *intent.Version
	}
	// bridges always use the newest encoding
	if route.IsBridge() {
		route.Version = xcm.LatestVersion
	}

	log.Debug().
		Str("origin", origin.ID).
		Str("destination", route.DestinationID()).
		Str("scenario", string(route.Scenario)).
		Str("bridge", string(route.Bridge)).
		Str("version", route.Version.String()).
		Msg("Route resolved")
	return route, nil
}

func (e *Engine) origin(intent models.TransferIntent) (*registry.Chain, error) {
	if intent.From == "" {
		return e.relayOfDestination(intent.To)
	}
	origin, ok := e.registry.Get(intent.From)
	if !ok {
		return nil, models.NewNodeNotSupportedError(intent.From, "unknown origin chain")
	}
	return origin, nil
}

func (e *Engine) classify(route *Route, to *models.Destination) error {
	origin := route.Origin

	if origin.IsRelay() {
		route.Scenario = models.ScenarioRelayToPara
		switch {
		case to == nil:
			return models.NewInvalidParameterError("relay to relay transfers are not supported")
		case to.Location != nil && to.Chain == "":
			route.DestLocation = to.Location
			return nil
		}
		dest, err := e.destination(to.Chain)
		if err != nil {
			return err
		}
		if dest.IsRelay() {
			return models.NewInvalidParameterError("relay to relay transfers are not supported")
		}
		if dest.IsExternal() || dest.Relay != origin.Relay {
			return models.NewIncompatibleNodesError("%s can not reach %s", origin.ID, dest.ID)
		}
		route.Destination = dest
		return nil
	}

	if to == nil {
		relay, ok := e.registry.Relay(origin.Relay)
		if !ok {
			return models.NewNodeNotSupportedError(origin.ID, "no relay chain registered for %s", origin.Relay)
		}
		route.Scenario = models.ScenarioParaToRelay
		route.Destination = relay
		return nil
	}
	if to.Chain == "" {
		if to.Location == nil {
			return models.NewInvalidParameterError("destination needs a chain or a location")
		}
		route.Scenario = models.ScenarioParaToPara
		route.DestLocation = to.Location
		return nil
	}

	dest, err := e.destination(to.Chain)
	if err != nil {
		return err
	}
	route.Destination = dest
	switch {
	case dest.ID == origin.ID:
		return models.NewInvalidParameterError("origin and destination are the same chain")
	case dest.IsRelay():
		if dest.Relay != origin.Relay {
			return models.NewIncompatibleNodesError("%s can not reach relay chain %s", origin.ID, dest.ID)
		}
		route.Scenario = models.ScenarioParaToRelay
	case dest.IsExternal():
		route.Scenario = models.ScenarioParaToPara
		route.Bridge = models.BridgeExternal
	case dest.Relay != origin.Relay:
		if !origin.AssetHub || !dest.AssetHub {
			return models.NewIncompatibleNodesError("%s (%s) and %s (%s) are on different relay networks",
				origin.ID, origin.Relay, dest.ID, dest.Relay)
		}
		route.Scenario = models.ScenarioParaToPara
		route.Bridge = models.BridgeRelayPair
	default:
		route.Scenario = models.ScenarioParaToPara
	}
	return nil
}

func (e *Engine) destination(id string) (*registry.Chain, error) {
	dest, ok := e.registry.Get(id)
	if !ok {
		return nil, models.NewNodeNotSupportedError(id, "unknown destination chain")
	}
	return dest, nil
}

func (e *Engine) checkScenario(route *Route) error {
	if hint, ok := route.Origin.ScenarioHint(route.Scenario); ok {
		return models.NewScenarioNotSupportedError(route.Origin.ID, route.Scenario, hint)
	}
	if route.Scenario == models.ScenarioRelayToPara && route.Destination != nil {
		if hint, ok := route.Destination.ScenarioHint(route.Scenario); ok {
			return models.NewScenarioNotSupportedError(route.Destination.ID, route.Scenario, hint)
		}
	}
	return nil
}
