package ssmclient

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2instanceconnect"
	"golang.org/x/crypto/ssh"
)

// SendSSHPublicKeyAPI is the part of the EC2 Instance Connect API used to
// provision a connection key.
type SendSSHPublicKeyAPI interface {
	SendSSHPublicKey(ctx context.Context, in *ec2instanceconnect.SendSSHPublicKeyInput, optFns ...func(*ec2instanceconnect.Options)) (*ec2instanceconnect.SendSSHPublicKeyOutput, error)
}

// PushEphemeralKey generates a throwaway ed25519 keypair, provisions the
// public half on the instance via EC2 Instance Connect (valid for 60 seconds
// on the AWS side) and writes the private half to a temp file for the ssh
// client.  The returned cleanup func removes the key material and must be
// called once the ssh client exits.
func PushEphemeralKey(ctx context.Context, client SendSSHPublicKeyAPI, instanceID, osUser string) (string, func(), error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return "", nil, err
	}

	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		return "", nil, err
	}

	in := &ec2instanceconnect.SendSSHPublicKeyInput{
		InstanceId:     aws.String(instanceID),
		InstanceOSUser: aws.String(osUser),
		SSHPublicKey:   aws.String(string(ssh.MarshalAuthorizedKey(sshPub))),
	}
	if _, err = client.SendSSHPublicKey(ctx, in); err != nil {
		return "", nil, fmt.Errorf("send ssh public key: %w", err)
	}

	block, err := ssh.MarshalPrivateKey(priv, "")
	if err != nil {
		return "", nil, err
	}

	dir, err := os.MkdirTemp("", "awsconnect-key")
	if err != nil {
		return "", nil, err
	}
	keyPath := filepath.Join(dir, "id_ed25519")
	if err = os.WriteFile(keyPath, pem.EncodeToMemory(block), 0o600); err != nil {
		_ = os.RemoveAll(dir)
		return "", nil, err
	}

	return keyPath, func() { _ = os.RemoveAll(dir) }, nil
}
