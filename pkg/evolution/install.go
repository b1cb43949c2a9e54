package evolution

import (
	"fmt"

	"github.com/forgeflow/evocore/pkg/artifacts"
	"github.com/forgeflow/evocore/pkg/contracts"
)

// InstallRejectError reports why InstallModule refused to install a
// bundle, tagged with the stable reason code contracts defines for
// this boundary (§4.5).
type InstallRejectError struct {
	Reason contracts.InstallRejectReason
	Detail string
}

func (e *InstallRejectError) Error() string {
	return fmt.Sprintf("install rejected: %s: %s", e.Reason, e.Detail)
}

// InstallModule is the install guard: it decides whether a bundle may
// be installed. It is fail-closed: validated status alone is not
// sufficient — the bundle hash is recomputed from the actual files and
// compared against the attestation, so a bundle swapped after
// validation (even one byte) is rejected. It only returns the verdict:
// it does not register the module with the Capability Registry and
// does not log the acceptance or rejection.
func InstallModule(install contracts.AttestedInstall, files []artifacts.File) error {
	if install.BundleSHA256 == "" {
		return &InstallRejectError{Reason: contracts.RejectMissingAttestation, Detail: "attested install carries no bundle hash"}
	}
	if install.Status != contracts.StatusValidated {
		return &InstallRejectError{Reason: contracts.RejectNotValidated, Detail: fmt.Sprintf("status is %s, not VALIDATED", install.Status)}
	}

	ok, err := artifacts.VerifyBundle(files, install.BundleSHA256)
	if err != nil {
		return &InstallRejectError{Reason: contracts.RejectHashMismatch, Detail: err.Error()}
	}
	if !ok {
		return &InstallRejectError{Reason: contracts.RejectHashMismatch, Detail: "recomputed bundle hash does not match attestation"}
	}

	return nil
}
