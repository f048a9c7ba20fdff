package feature

import "testing"

func TestVector_ByNameMatchesAt(t *testing.T) {
	v, _ := Integrate("BTCUSDT", fixedNow(), Inputs{}, DefaultConfig())

	got, ok := v.ByName("eth_gas")
	if !ok {
		t.Fatal("expected eth_gas to resolve by name")
	}
	if got != v.At(EthGas) {
		t.Errorf("ByName and At disagree: %v vs %v", got, v.At(EthGas))
	}
}

func TestVector_ByNameRejectsExtendedIndexOnBaseLayout(t *testing.T) {
	v, _ := Integrate("BTCUSDT", fixedNow(), Inputs{}, DefaultConfig())
	if _, ok := v.ByName("orderbook_imbalance"); ok {
		t.Error("expected an extended-only name to be unresolvable on a base-layout vector")
	}
}

func TestVector_AtPanicsOutOfRange(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected At to panic for an out-of-range index")
		}
	}()
	v, _ := Integrate("BTCUSDT", fixedNow(), Inputs{}, DefaultConfig())
	v.At(int(Base) + 1)
}
