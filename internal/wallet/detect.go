package wallet

// InjectedProvider is the client-reported shape of one injected wallet object.
type InjectedProvider struct {
	IsMetaMask  bool `json:"isMetaMask"`
	IsTrust     bool `json:"isTrust"`
	IsOkxWallet bool `json:"isOkxWallet"`
	HasRequest  bool `json:"hasRequest"`
}

// InjectedEnvironment mirrors window.ethereum and its optional providers list.
type InjectedEnvironment struct {
	Ethereum  *InjectedProvider  `json:"ethereum"`
	Providers []InjectedProvider `json:"providers"`
}

// Match describes how a detection was reached.
type Match string

const (
	MatchNone     Match = "none"
	MatchFlag     Match = "flag"
	MatchFallback Match = "fallback"
)

// Detection is the advisory result of Detect.
type Detection struct {
	Provider Provider `json:"provider,omitempty"`
	Match    Match    `json:"match"`
}

// Known reports whether the provider was identified by a vendor flag.
func (d Detection) Known() bool {
	return d.Match == MatchFlag
}

func (e InjectedEnvironment) candidates() []InjectedProvider {
	if len(e.Providers) > 0 {
		return e.Providers
	}
	if e.Ethereum != nil {
		return []InjectedProvider{*e.Ethereum}
	}
	return nil
}

func (p InjectedProvider) flagged() (Provider, bool) {
	switch {
	case p.IsMetaMask:
		return MetaMask, true
	case p.IsTrust:
		return TrustWallet, true
	case p.IsOkxWallet:
		return OKXWallet, true
	}
	return "", false
}

func (p InjectedProvider) unbranded() bool {
	_, ok := p.flagged()
	return !ok && p.HasRequest
}

// Detect classifies the injected environment. A vendor flag on any candidate
// beats the generic fallback, which only applies when no candidate is flagged
// but one can still service requests.
func Detect(env InjectedEnvironment) Detection {
	candidates := env.candidates()
	for _, p := range candidates {
		if provider, ok := p.flagged(); ok {
			return Detection{Provider: provider, Match: MatchFlag}
		}
	}
	for _, p := range candidates {
		if p.unbranded() {
			return Detection{Provider: SupportedProviders[0], Match: MatchFallback}
		}
	}
	return Detection{Match: MatchNone}
}

// MatchesRegistered reports whether any candidate corresponds to the registered
// provider. An unbranded candidate only matches the default provider.
func MatchesRegistered(env InjectedEnvironment, registered Provider) bool {
	registered = registered.OrDefault()
	for _, p := range env.candidates() {
		if matchesFlag(p, registered) {
			return true
		}
		if registered == DefaultProvider && p.unbranded() {
			return true
		}
	}
	return false
}

func matchesFlag(p InjectedProvider, registered Provider) bool {
	switch registered {
	case MetaMask:
		return p.IsMetaMask
	case TrustWallet:
		return p.IsTrust
	case OKXWallet:
		return p.IsOkxWallet
	}
	return false
}
