// Package tailor generates submission materials for a job posting: a text
// resume and cover letter assembled from role templates, keyword extraction
// over the job description, and the applicant profile. Generation is
// deterministic so a retried task overwrites its own artifacts instead of
// accumulating copies.
package tailor
