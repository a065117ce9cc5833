package bitcoin

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"

	"github.com/goodnatureofminers/blockinsight7000-connector/internal/utxo/model"
)

// scriptDecoder classifies scripts and encodes their addresses for one network.
type scriptDecoder struct {
	params *chaincfg.Params
}

// NewScriptDecoder initializes a decoder for extracting addresses using params of the provided network.
func NewScriptDecoder(network model.Network) (ScriptDecoder, error) {
	params, err := ChainParams(network)
	if err != nil {
		return nil, err
	}
	return &scriptDecoder{params: params}, nil
}

// Decode returns the script class, its disassembly and the addresses it pays.
// Non-standard scripts have no addresses. A script that does not parse keeps its
// class and yields an error alongside whatever was decoded.
func (d *scriptDecoder) Decode(pkScript []byte) (Script, error) {
	class, addrs, _, err := txscript.ExtractPkScriptAddrs(pkScript, d.params)
	script := Script{Type: class.String()}
	if err != nil {
		return script, fmt.Errorf("extract addresses: %w", err)
	}
	if len(addrs) > 0 {
		script.Addresses = make([]string, 0, len(addrs))
		for _, addr := range addrs {
			script.Addresses = append(script.Addresses, addr.EncodeAddress())
		}
	}

	script.Asm, err = txscript.DisasmString(pkScript)
	if err != nil {
		return script, fmt.Errorf("disassemble script: %w", err)
	}
	return script, nil
}

// ChainParams returns the chain parameters of a network name.
func ChainParams(network model.Network) (*chaincfg.Params, error) {
	switch strings.ToLower(string(network)) {
	case "main", "mainnet", "bitcoin":
		return &chaincfg.MainNetParams, nil
	case "testnet", "testnet3":
		return &chaincfg.TestNet3Params, nil
	case "regtest":
		return &chaincfg.RegressionNetParams, nil
	case "signet":
		return &chaincfg.SigNetParams, nil
	default:
		return nil, fmt.Errorf("unsupported network %q", network)
	}
}
