package ledger

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	apperrors "github.com/carevault/carevault/pkg/errors"
	"github.com/carevault/carevault/pkg/types"
)

// consentTxGasLimit covers a calldata-only transaction to the consent
// contract; the contract does no storage writes beyond event emission.
const consentTxGasLimit = 120_000

// EthereumLedger anchors approval digests on an EVM chain. Each approval
// becomes one transaction from the operator account to the consent contract
// with the canonical digest as calldata. TxID is the transaction hash;
// Proof is the digest the transaction carries.
type EthereumLedger struct {
	client   *ethclient.Client
	chainID  *big.Int
	contract common.Address
	operator *ecdsa.PrivateKey
	from     common.Address
}

// NewEthereumLedger connects to the RPC endpoint and auto-detects the chain ID.
func NewEthereumLedger(rpcURL, contractHex, operatorKeyHex string) (*EthereumLedger, error) {
	if rpcURL == "" {
		return nil, fmt.Errorf("RPC URL is required")
	}
	if !common.IsHexAddress(contractHex) {
		return nil, fmt.Errorf("invalid consent contract address: %s", contractHex)
	}

	operator, err := ethcrypto.HexToECDSA(operatorKeyHex)
	if err != nil {
		return nil, fmt.Errorf("failed to parse operator key: %w", err)
	}

	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC: %w", err)
	}

	chainID, err := client.ChainID(context.Background())
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to get chain ID: %w", err)
	}

	publicKey := operator.Public().(*ecdsa.PublicKey)

	return &EthereumLedger{
		client:   client,
		chainID:  chainID,
		contract: common.HexToAddress(contractHex),
		operator: operator,
		from:     ethcrypto.PubkeyToAddress(*publicKey),
	}, nil
}

// RecordApproval submits the approval digest to the consent contract.
func (l *EthereumLedger) RecordApproval(ctx context.Context, grant types.GrantKey, expiresAt *time.Time) (*types.ConsentProof, error) {
	digest := ApprovalDigest(grant, expiresAt)

	nonce, err := l.client.PendingNonceAt(ctx, l.from)
	if err != nil {
		return nil, apperrors.LedgerUnavailable(fmt.Sprintf("failed to get nonce: %v", err))
	}

	gasPrice, err := l.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, apperrors.LedgerUnavailable(fmt.Sprintf("failed to get gas price: %v", err))
	}

	tx := ethtypes.NewTx(&ethtypes.LegacyTx{
		Nonce:    nonce,
		To:       &l.contract,
		Value:    big.NewInt(0),
		Gas:      consentTxGasLimit,
		GasPrice: gasPrice,
		Data:     digest[:],
	})

	signedTx, err := ethtypes.SignTx(tx, ethtypes.LatestSignerForChainID(l.chainID), l.operator)
	if err != nil {
		return nil, apperrors.LedgerUnavailable(fmt.Sprintf("failed to sign consent transaction: %v", err))
	}

	if err := l.client.SendTransaction(ctx, signedTx); err != nil {
		// The node reached us but refused the transaction.
		return nil, apperrors.LedgerRejected(fmt.Sprintf("consent transaction refused: %v", err))
	}

	return &types.ConsentProof{
		TxID:  signedTx.Hash().Hex(),
		Proof: "0x" + hex.EncodeToString(digest[:]),
	}, nil
}

// Close releases the underlying RPC connection.
func (l *EthereumLedger) Close() {
	l.client.Close()
}
