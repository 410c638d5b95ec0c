package wallet

import "testing"

func TestDetect(t *testing.T) {
	flagless := InjectedProvider{HasRequest: true}
	trust := InjectedProvider{IsTrust: true, HasRequest: true}

	cases := []struct {
		name string
		env  InjectedEnvironment
		want Detection
	}{
		{
			name: "no injected wallet",
			env:  InjectedEnvironment{},
			want: Detection{Match: MatchNone},
		},
		{
			name: "single metamask",
			env:  InjectedEnvironment{Ethereum: &InjectedProvider{IsMetaMask: true, HasRequest: true}},
			want: Detection{Provider: MetaMask, Match: MatchFlag},
		},
		{
			name: "okx flag",
			env:  InjectedEnvironment{Ethereum: &InjectedProvider{IsOkxWallet: true}},
			want: Detection{Provider: OKXWallet, Match: MatchFlag},
		},
		{
			name: "trust first among flagless",
			env:  InjectedEnvironment{Providers: []InjectedProvider{trust, flagless, flagless}},
			want: Detection{Provider: TrustWallet, Match: MatchFlag},
		},
		{
			name: "trust last among flagless",
			env:  InjectedEnvironment{Providers: []InjectedProvider{flagless, flagless, trust}},
			want: Detection{Provider: TrustWallet, Match: MatchFlag},
		},
		{
			name: "trust in the middle",
			env:  InjectedEnvironment{Providers: []InjectedProvider{flagless, trust, flagless}},
			want: Detection{Provider: TrustWallet, Match: MatchFlag},
		},
		{
			name: "first flagged entry wins",
			env: InjectedEnvironment{Providers: []InjectedProvider{
				{IsOkxWallet: true},
				{IsMetaMask: true},
			}},
			want: Detection{Provider: OKXWallet, Match: MatchFlag},
		},
		{
			name: "providers list shadows ethereum",
			env: InjectedEnvironment{
				Ethereum:  &InjectedProvider{IsMetaMask: true},
				Providers: []InjectedProvider{{IsTrust: true}},
			},
			want: Detection{Provider: TrustWallet, Match: MatchFlag},
		},
		{
			name: "unbranded falls back",
			env:  InjectedEnvironment{Ethereum: &flagless},
			want: Detection{Provider: MetaMask, Match: MatchFallback},
		},
		{
			name: "no request capability",
			env:  InjectedEnvironment{Ethereum: &InjectedProvider{}},
			want: Detection{Match: MatchNone},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Detect(tc.env)
			if got != tc.want {
				t.Fatalf("Detect = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestDetectionKnown(t *testing.T) {
	if (Detection{Provider: MetaMask, Match: MatchFallback}).Known() {
		t.Fatalf("fallback detection must not be reported as known")
	}
	if !(Detection{Provider: TrustWallet, Match: MatchFlag}).Known() {
		t.Fatalf("flag detection should be known")
	}
}

func TestMatchesRegistered(t *testing.T) {
	env := InjectedEnvironment{Providers: []InjectedProvider{
		{HasRequest: true},
		{IsOkxWallet: true, HasRequest: true},
	}}

	if !MatchesRegistered(env, OKXWallet) {
		t.Fatalf("expected okx match")
	}
	if !MatchesRegistered(env, MetaMask) {
		t.Fatalf("unbranded entry should match the default provider")
	}
	if !MatchesRegistered(env, "") {
		t.Fatalf("legacy empty provider should be treated as the default")
	}
	if MatchesRegistered(env, TrustWallet) {
		t.Fatalf("trustwallet should not match")
	}

	flagged := InjectedEnvironment{Ethereum: &InjectedProvider{IsTrust: true, HasRequest: true}}
	if MatchesRegistered(flagged, MetaMask) {
		t.Fatalf("a branded wallet must not satisfy the metamask fallback")
	}
}
